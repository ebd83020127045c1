package systems

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/penumbra-engine/penumbra/engine/assets"
	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/renderer"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// Load priorities used by the scene preloader.
const (
	PriorityRequired = 10.0
	PriorityOptional = 1.0
)

// TaskStatus tracks a load task through its two phases.
type TaskStatus int32

const (
	TaskPending TaskStatus = iota
	TaskLoading
	TaskLoaded
	TaskUploading
	TaskCompleted
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskLoading:
		return "loading"
	case TaskLoaded:
		return "loaded"
	case TaskUploading:
		return "uploading"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	}
	return "unknown"
}

// LoadResult is what a completion callback receives.
type LoadResult struct {
	Task     *LoadTask
	Resource interface{}
	Err      error
}

func (r LoadResult) IsSuccess() bool {
	return r.Task != nil && r.Task.Status() == TaskCompleted && r.Resource != nil
}

// LoadTask is one resource acquisition split into a worker-side load
// and a main-thread upload. The task is shared between the caller and
// the loader's queues; status is the only cross-thread field and is
// atomic.
type LoadTask struct {
	ID       uuid.UUID
	Kind     resources.Kind
	Name     string
	Path     string
	Priority float64

	status atomic.Int32

	mu  sync.Mutex
	err error
	// loaded is the load-phase product, written by the worker before
	// the task is handed to the completed queue.
	loaded interface{}

	loadFunc   func() (interface{}, error)
	uploadFunc func(loaded interface{}) (interface{}, error)
	callback   func(LoadResult)
}

func newLoadTask(kind resources.Kind, name, path string, priority float64, callback func(LoadResult)) *LoadTask {
	return &LoadTask{
		ID:       uuid.New(),
		Kind:     kind,
		Name:     name,
		Path:     path,
		Priority: priority,
		callback: callback,
	}
}

func (t *LoadTask) Status() TaskStatus {
	return TaskStatus(t.status.Load())
}

func (t *LoadTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *LoadTask) fail(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	t.status.Store(int32(TaskFailed))
}

// ExecuteLoad runs the worker-side phase. Panics and errors both end in
// TaskFailed; nothing escapes the task boundary.
func (t *LoadTask) ExecuteLoad() {
	defer func() {
		if r := recover(); r != nil {
			t.fail(fmt.Errorf("load panic: %v", r))
		}
	}()

	t.status.Store(int32(TaskLoading))
	if t.loadFunc == nil {
		t.fail(fmt.Errorf("task '%s' has no load function", t.Name))
		return
	}
	data, err := t.loadFunc()
	if err != nil {
		t.fail(err)
		return
	}
	t.mu.Lock()
	t.loaded = data
	t.mu.Unlock()
	t.status.Store(int32(TaskLoaded))
}

// ExecuteUpload runs the main-thread phase and returns the finished
// resource. A failed load skips the upload but still returns, so the
// caller can fire the callback either way. A nil uploadFunc passes the
// loaded data through untouched.
func (t *LoadTask) ExecuteUpload() interface{} {
	if t.Status() == TaskFailed {
		return nil
	}

	var resource interface{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.fail(fmt.Errorf("upload panic: %v", r))
				resource = nil
			}
		}()

		t.status.Store(int32(TaskUploading))
		t.mu.Lock()
		loaded := t.loaded
		t.mu.Unlock()

		if t.uploadFunc == nil {
			resource = loaded
			t.status.Store(int32(TaskCompleted))
			return
		}
		out, err := t.uploadFunc(loaded)
		if err != nil {
			t.fail(err)
			return
		}
		resource = out
		t.status.Store(int32(TaskCompleted))
	}()
	return resource
}

// AsyncResourceLoader runs the two-phase load pipeline: a fixed worker
// pool performs file I/O and parsing, the owning thread performs GPU
// uploads through ProcessCompletedTasks under an explicit budget.
type AsyncResourceLoader struct {
	assets   *assets.AssetManager
	renderer renderer.Renderer

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*LoadTask
	// activeLoads counts workers currently inside ExecuteLoad.
	activeLoads int
	stopping    bool
	workers     int

	completedMu sync.Mutex
	completed   []*LoadTask

	inFlight    atomic.Int32
	wg          sync.WaitGroup
	initialized bool
}

func NewAsyncResourceLoader(am *assets.AssetManager, r renderer.Renderer) *AsyncResourceLoader {
	l := &AsyncResourceLoader{
		assets:   am,
		renderer: r,
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Initialize starts the worker pool. A worker count of zero or less
// means one worker per CPU.
func (l *AsyncResourceLoader) Initialize(workers int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.initialized {
		return fmt.Errorf("async loader already initialized")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l.workers = workers
	l.initialized = true

	for i := 0; i < workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	core.LogInfo("async loader started with %d workers", workers)
	return nil
}

func (l *AsyncResourceLoader) worker() {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		for len(l.pending) == 0 && !l.stopping {
			l.cond.Wait()
		}
		if len(l.pending) == 0 && l.stopping {
			l.mu.Unlock()
			return
		}
		task := l.pending[0]
		l.pending = l.pending[1:]
		l.activeLoads++
		l.mu.Unlock()

		task.ExecuteLoad()

		l.completedMu.Lock()
		l.completed = append(l.completed, task)
		l.completedMu.Unlock()

		l.mu.Lock()
		l.activeLoads--
		l.mu.Unlock()
	}
}

// Submit queues a task for the worker pool. Higher priority pops first;
// equal priorities keep submission order.
func (l *AsyncResourceLoader) Submit(task *LoadTask) {
	if task == nil {
		return
	}
	l.inFlight.Add(1)
	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		// Failed on the spot, but still routed through the completed
		// queue so the callback fires like any other task's.
		task.fail(fmt.Errorf("async loader: %w", core.ErrShuttingDown))
		l.completedMu.Lock()
		l.completed = append(l.completed, task)
		l.completedMu.Unlock()
		return
	}
	idx := len(l.pending)
	for i, queued := range l.pending {
		if queued.Priority < task.Priority {
			idx = i
			break
		}
	}
	l.pending = append(l.pending, nil)
	copy(l.pending[idx+1:], l.pending[idx:])
	l.pending[idx] = task
	l.cond.Signal()
	l.mu.Unlock()
}

// LoadMeshAsync loads and uploads a mesh file, registering nothing
// itself: the callback owns what happens with the finished handle.
func (l *AsyncResourceLoader) LoadMeshAsync(path, name string, callback func(LoadResult), priority float64) *LoadTask {
	task := newLoadTask(resources.KindMesh, name, path, priority, callback)
	task.loadFunc = func() (interface{}, error) {
		asset, err := l.assets.Load(path, resources.KindMesh, nil)
		if err != nil {
			return nil, err
		}
		data, ok := asset.Data.(*resources.MeshData)
		if !ok {
			return nil, fmt.Errorf("asset '%s' did not decode to mesh data", path)
		}
		return data, nil
	}
	task.uploadFunc = func(loaded interface{}) (interface{}, error) {
		data := loaded.(*resources.MeshData)
		gpuID, err := l.renderer.CreateMesh(data)
		if err != nil {
			return nil, err
		}
		return &resources.Mesh{
			Name:         name,
			GPUID:        gpuID,
			VertexCount:  uint32(len(data.Vertices)),
			IndexCount:   uint32(len(data.Indices)),
			MaterialName: data.MaterialName,
			Extents:      data.Extents,
		}, nil
	}
	l.Submit(task)
	return task
}

// LoadTextureAsync loads and uploads an image file.
func (l *AsyncResourceLoader) LoadTextureAsync(path, name string, callback func(LoadResult), priority float64) *LoadTask {
	task := newLoadTask(resources.KindTexture, name, path, priority, callback)
	task.loadFunc = func() (interface{}, error) {
		asset, err := l.assets.Load(path, resources.KindTexture, nil)
		if err != nil {
			return nil, err
		}
		data, ok := asset.Data.(*resources.ImageData)
		if !ok {
			return nil, fmt.Errorf("asset '%s' did not decode to image data", path)
		}
		return data, nil
	}
	task.uploadFunc = func(loaded interface{}) (interface{}, error) {
		data := loaded.(*resources.ImageData)
		gpuID, err := l.renderer.CreateTexture(data)
		if err != nil {
			return nil, err
		}
		return &resources.Texture{
			Name:         name,
			GPUID:        gpuID,
			Width:        data.Width,
			Height:       data.Height,
			ChannelCount: data.ChannelCount,
		}, nil
	}
	l.Submit(task)
	return task
}

// LoadModelAsync loads a model manifest. Models have no GPU object, so
// there is no upload function and the parsed data passes straight
// through to the callback.
func (l *AsyncResourceLoader) LoadModelAsync(path, name string, callback func(LoadResult), priority float64) *LoadTask {
	task := newLoadTask(resources.KindModel, name, path, priority, callback)
	task.loadFunc = func() (interface{}, error) {
		asset, err := l.assets.Load(path, resources.KindModel, nil)
		if err != nil {
			return nil, err
		}
		data, ok := asset.Data.(*resources.ModelData)
		if !ok {
			return nil, fmt.Errorf("asset '%s' did not decode to model data", path)
		}
		return data, nil
	}
	l.Submit(task)
	return task
}

// ProcessCompletedTasks runs the upload phase for up to maxTasks
// finished loads and fires their callbacks. Call once per frame from
// the thread owning the GPU context. maxTasks <= 0 drains everything
// queued, which only the shutdown path wants. Never blocks: an empty
// queue returns immediately.
func (l *AsyncResourceLoader) ProcessCompletedTasks(maxTasks int) int {
	processed := 0
	for maxTasks <= 0 || processed < maxTasks {
		l.completedMu.Lock()
		if len(l.completed) == 0 {
			l.completedMu.Unlock()
			break
		}
		task := l.completed[0]
		l.completed = l.completed[1:]
		l.completedMu.Unlock()

		resource := task.ExecuteUpload()
		result := LoadResult{
			Task:     task,
			Resource: resource,
			Err:      task.Err(),
		}
		if result.Err != nil {
			core.LogWarn("async load '%s' (%s) failed: %v", task.Name, task.Kind, result.Err)
		}
		l.fireCallback(task, result)
		l.inFlight.Add(-1)
		processed++
	}
	return processed
}

// fireCallback invokes the completion callback with panic containment:
// a misbehaving callback must not take the frame loop down.
func (l *AsyncResourceLoader) fireCallback(task *LoadTask, result LoadResult) {
	if task.callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			core.LogError("async load callback for '%s' panicked: %v", task.Name, r)
		}
	}()
	task.callback(result)
}

// WaitForAll blocks until no task is queued or mid-load, or the timeout
// passes. Zero or negative timeout waits without deadline. Intended for
// shutdown only; the per-frame path never blocks.
func (l *AsyncResourceLoader) WaitForAll(timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		l.mu.Lock()
		drained := len(l.pending) == 0 && l.activeLoads == 0
		l.mu.Unlock()
		if drained {
			return true
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// Shutdown stops the workers after the pending queue drains. Completed
// tasks still queued afterwards can be flushed with one final
// ProcessCompletedTasks call.
func (l *AsyncResourceLoader) Shutdown() {
	l.mu.Lock()
	if !l.initialized || l.stopping {
		l.mu.Unlock()
		return
	}
	l.stopping = true
	l.cond.Broadcast()
	l.mu.Unlock()

	l.wg.Wait()
	core.LogInfo("async loader stopped")
}

// PendingCount reports tasks waiting for a worker.
func (l *AsyncResourceLoader) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// CompletedCount reports tasks waiting for their upload phase.
func (l *AsyncResourceLoader) CompletedCount() int {
	l.completedMu.Lock()
	defer l.completedMu.Unlock()
	return len(l.completed)
}

// InFlight reports tasks submitted whose callbacks have not fired yet.
func (l *AsyncResourceLoader) InFlight() int {
	return int(l.inFlight.Load())
}
