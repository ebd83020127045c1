package core

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Priority orders handlers subscribed to the same event type. Higher
// priorities run first; handlers with equal priority run in subscription
// order.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 50
	PriorityHigh   Priority = 100
)

// EventBus is a typed publish/subscribe dispatcher. Events are plain
// structs keyed by their concrete type; handlers for one type never see
// another. Publishing is synchronous on the caller's goroutine. The bus
// is safe for concurrent use, and handlers may subscribe or unsubscribe
// from inside a dispatch.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]*Subscription
}

// Subscription identifies one registered handler. Close removes it from
// the bus; closing twice is a no-op.
type Subscription struct {
	bus       *EventBus
	eventType reflect.Type
	priority  Priority
	invoke    func(event interface{})
	closed    atomic.Bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[reflect.Type][]*Subscription),
	}
}

// Subscribe registers handler for events of type E at the given priority.
func Subscribe[E any](bus *EventBus, priority Priority, handler func(E)) *Subscription {
	et := reflect.TypeOf((*E)(nil)).Elem()
	sub := &Subscription{
		bus:       bus,
		eventType: et,
		priority:  priority,
		invoke: func(event interface{}) {
			handler(event.(E))
		},
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	list := bus.handlers[et]
	// Insert keeping the list ordered by descending priority. Scanning past
	// every handler with priority >= ours preserves subscription order
	// within a priority band.
	idx := len(list)
	for i, s := range list {
		if s.priority < priority {
			idx = i
			break
		}
	}
	list = append(list, nil)
	copy(list[idx+1:], list[idx:])
	list[idx] = sub
	bus.handlers[et] = list

	return sub
}

// Publish delivers event to every live subscription for its type, highest
// priority first. A panicking handler is logged and skipped; dispatch
// continues with the remaining handlers.
func Publish[E any](bus *EventBus, event E) {
	if bus == nil {
		return
	}
	et := reflect.TypeOf((*E)(nil)).Elem()

	bus.mu.RLock()
	list := bus.handlers[et]
	snapshot := make([]*Subscription, len(list))
	copy(snapshot, list)
	bus.mu.RUnlock()

	for _, sub := range snapshot {
		if sub.closed.Load() {
			continue
		}
		dispatch(sub, event)
	}
}

func dispatch(sub *Subscription, event interface{}) {
	defer func() {
		if r := recover(); r != nil {
			LogError("event handler for %s panicked: %v", sub.eventType, r)
		}
	}()
	sub.invoke(event)
}

// Close unsubscribes the handler. Safe to call from inside a handler; an
// event already being dispatched may still reach the handler once.
func (s *Subscription) Close() {
	if s == nil || s.closed.Swap(true) {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	list := s.bus.handlers[s.eventType]
	for i, sub := range list {
		if sub == s {
			s.bus.handlers[s.eventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// HandlerCount reports the number of live subscriptions across all event
// types.
func (b *EventBus) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, list := range b.handlers {
		n += len(list)
	}
	return n
}
