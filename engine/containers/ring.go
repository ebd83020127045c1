package containers

// Ring is a fixed-capacity ring buffer. Pushing onto a full ring
// overwrites the oldest element, which makes it the backing store for
// rolling windows.
type Ring[T any] struct {
	data  []T
	read  int
	write int
	count int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Push appends value, evicting the oldest element when full.
func (r *Ring[T]) Push(value T) {
	r.data[r.write] = value
	r.write = (r.write + 1) % len(r.data)
	if r.count == len(r.data) {
		r.read = r.write
		return
	}
	r.count++
}

// Pop removes and returns the oldest element.
func (r *Ring[T]) Pop() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	value := r.data[r.read]
	r.read = (r.read + 1) % len(r.data)
	r.count--
	return value, true
}

// Peek returns the oldest element without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.data[r.read], true
}

// Each visits the elements oldest-first.
func (r *Ring[T]) Each(fn func(T)) {
	for i := 0; i < r.count; i++ {
		fn(r.data[(r.read+i)%len(r.data)])
	}
}

func (r *Ring[T]) Len() int {
	return r.count
}

func (r *Ring[T]) Cap() int {
	return len(r.data)
}

func (r *Ring[T]) Full() bool {
	return r.count == len(r.data)
}
