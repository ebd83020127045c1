package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/penumbra-engine/penumbra/engine/assets"
	"github.com/penumbra-engine/penumbra/engine/config"
	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/math"
	"github.com/penumbra-engine/penumbra/engine/platform"
	"github.com/penumbra-engine/penumbra/engine/renderer"
	"github.com/penumbra-engine/penumbra/engine/renderer/components"
	"github.com/penumbra-engine/penumbra/engine/systems"
	"github.com/penumbra-engine/penumbra/engine/world"
)

// ApplicationHost owns every engine subsystem and drives the frame
// loop. Scenes and modules reach the subsystems through the AppContext
// it builds; nothing engine-side is global.
type ApplicationHost struct {
	cfg config.ApplicationConfig

	bus       *core.EventBus
	input     *core.Input
	platform  *platform.Platform
	assets    *assets.AssetManager
	renderer  renderer.Renderer
	camera    *components.Camera
	resources *systems.ResourceManager
	shaders   *systems.ShaderCache
	loader    *systems.AsyncResourceLoader
	world     *world.World
	scenes    *systems.SceneManager
	modules   *systems.ModuleRegistry
	ctx       *systems.AppContext

	clock   *core.Clock
	metrics *core.Metrics

	running     atomic.Bool
	suspended   bool
	initialized bool

	width       uint32
	height      uint32
	lastTime    float64
	totalTime   float64
	frameNumber uint64

	quitSub   *core.Subscription
	resizeSub *core.Subscription
}

// New wires the subsystems together. Nothing starts running until
// Initialize.
func New(cfg config.ApplicationConfig) (*ApplicationHost, error) {
	core.SetLogLevel(cfg.LogLevel)

	bus := core.NewEventBus()
	input := core.NewInput(bus)

	am, err := assets.NewAssetManager(bus)
	if err != nil {
		return nil, fmt.Errorf("application host: %w", err)
	}

	h := &ApplicationHost{
		cfg:       cfg,
		bus:       bus,
		input:     input,
		platform:  platform.New(input, bus, cfg.Headless),
		assets:    am,
		renderer:  renderer.NewHeadless(),
		camera:    components.NewCamera(),
		resources: systems.NewResourceManager(),
		shaders:   systems.NewShaderCache(),
		world:     world.New(),
		scenes:    systems.NewSceneManager(),
		modules:   systems.NewModuleRegistry(),
		clock:     core.NewClock(),
		metrics:   core.NewMetrics(),
		width:     cfg.Width,
		height:    cfg.Height,
	}
	h.loader = systems.NewAsyncResourceLoader(am, h.renderer)
	h.ctx = &systems.AppContext{
		EventBus:        bus,
		Input:           input,
		Config:          &h.cfg,
		Assets:          am,
		Renderer:        h.renderer,
		ResourceManager: h.resources,
		AsyncLoader:     h.loader,
		ShaderCache:     h.shaders,
		World:           h.world,
	}
	return h, nil
}

// Initialize brings the subsystems up in dependency order. Must run on
// the main goroutine; the platform layer binds to the calling thread.
func (h *ApplicationHost) Initialize() error {
	if h.initialized {
		return fmt.Errorf("application host already initialized")
	}

	if err := h.platform.Startup(h.cfg.Title,
		int32(h.cfg.StartPosX), int32(h.cfg.StartPosY),
		h.cfg.Width, h.cfg.Height); err != nil {
		return fmt.Errorf("platform startup: %w", err)
	}

	if err := h.renderer.Initialize(h.cfg.Title, h.cfg.Width, h.cfg.Height); err != nil {
		return fmt.Errorf("renderer startup: %w", err)
	}
	h.camera.SetViewport(h.cfg.Width, h.cfg.Height)

	if err := h.assets.Initialize(h.cfg.AssetRoot); err != nil {
		return fmt.Errorf("asset manager startup: %w", err)
	}

	if err := h.loader.Initialize(h.cfg.LoaderWorkers); err != nil {
		return fmt.Errorf("async loader startup: %w", err)
	}

	if err := h.modules.InitializeAll(h.ctx); err != nil {
		return err
	}

	if err := h.scenes.Initialize(h.ctx, h.modules); err != nil {
		return err
	}

	h.quitSub = core.Subscribe(h.bus, core.PriorityHigh, func(core.QuitRequestedEvent) {
		core.LogInfo("quit requested, stopping")
		h.RequestStop()
	})
	h.resizeSub = core.Subscribe(h.bus, core.PriorityHigh, h.onResize)

	h.initialized = true
	core.LogInfo("%s up (%dx%d, headless=%v)", h.cfg.Title, h.width, h.height, h.cfg.Headless)
	return nil
}

func (h *ApplicationHost) onResize(e core.WindowResizeEvent) {
	if e.Width == 0 || e.Height == 0 {
		core.LogInfo("window minimized, suspending")
		h.suspended = true
		return
	}
	if h.suspended {
		core.LogInfo("window restored, resuming")
		h.suspended = false
	}
	if e.Width == h.width && e.Height == h.height {
		return
	}
	h.width = e.Width
	h.height = e.Height
	h.camera.SetViewport(e.Width, e.Height)
	if err := h.renderer.Resized(e.Width, e.Height); err != nil {
		core.LogError("renderer resize: %v", err)
	}
}

// Run executes the frame loop until a stop is requested or the window
// closes.
func (h *ApplicationHost) Run() error {
	if !h.initialized {
		return fmt.Errorf("application host: %w", core.ErrNotInitialized)
	}

	h.clock.Start()
	h.clock.Update()
	h.lastTime = h.clock.Elapsed()
	h.running.Store(true)

	targetFrameSeconds := 1.0 / float64(h.cfg.TargetFPS)

	for h.running.Load() {
		h.platform.PumpMessages()
		if h.platform.ShouldClose() {
			h.running.Store(false)
			break
		}

		h.clock.Update()
		currentTime := h.clock.Elapsed()
		delta := currentTime - h.lastTime
		h.lastTime = currentTime

		if h.suspended {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := h.RunFrame(delta); err != nil {
			core.LogError("frame failed, stopping: %v", err)
			h.running.Store(false)
			break
		}

		h.clock.Update()
		frameElapsed := h.clock.Elapsed() - currentTime
		h.metrics.Update(frameElapsed)

		// Give leftover frame time back to the OS.
		if remaining := targetFrameSeconds - frameElapsed; remaining > 0 {
			time.Sleep(time.Duration(remaining * float64(time.Second)))
		}
	}
	return nil
}

// RunFrame advances the engine by one frame. Tests and external drivers
// call it directly; Run calls it at the configured cadence.
func (h *ApplicationHost) RunFrame(delta float64) error {
	if !h.initialized {
		return fmt.Errorf("application host: %w", core.ErrNotInitialized)
	}

	h.frameNumber++
	h.totalTime += delta
	args := &systems.FrameUpdateArgs{
		DeltaTime:   delta,
		TotalTime:   h.totalTime,
		FrameNumber: h.frameNumber,
	}

	// Finished loads first: resources registered here are visible to
	// every consumer below, scenes included.
	h.loader.ProcessCompletedTasks(h.cfg.UploadBudget)

	h.resources.BeginFrame()
	if h.frameNumber%h.cfg.ResourceSweepFrames == 0 {
		if removed := h.resources.CleanupUnused(h.cfg.ResourceSweepFrames); removed > 0 {
			core.LogDebug("resource sweep evicted %d entries", removed)
		}
	}

	h.modules.PreFrame(args)
	h.scenes.Update(args)

	if err := h.renderFrame(delta); err != nil {
		return err
	}

	h.modules.PostFrame(args)

	// Input state copies current to previous last, after everything
	// that wanted to read this frame's edges has run.
	h.input.Update()
	return nil
}

func (h *ApplicationHost) renderFrame(delta float64) error {
	if err := h.renderer.BeginFrame(delta); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	packet := h.buildRenderPacket(delta)
	if err := h.renderer.DrawFrame(packet); err != nil {
		return fmt.Errorf("draw frame: %w", err)
	}
	if err := h.renderer.EndFrame(delta); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	return nil
}

// buildRenderPacket walks the world for visible renderables whose mesh
// made it into the registry. Entities whose resources are still loading
// simply do not draw yet.
func (h *ApplicationHost) buildRenderPacket(delta float64) *renderer.RenderPacket {
	packet := &renderer.RenderPacket{
		DeltaTime:  delta,
		View:       h.camera.ViewMatrix(),
		Projection: h.camera.ProjectionMatrix(),
	}
	for _, id := range h.world.EntitiesWith(world.ComponentRenderable) {
		rv, _ := h.world.Component(id, world.ComponentRenderable)
		renderable, ok := rv.(world.RenderableComponent)
		if !ok || !renderable.Visible {
			continue
		}
		mesh, ok := h.resources.GetMesh(renderable.Mesh)
		if !ok {
			continue
		}

		model := math.NewMat4Identity()
		if tv, ok := h.world.Component(id, world.ComponentTransform); ok {
			if transform, ok := tv.(world.TransformComponent); ok {
				model = modelMatrix(transform)
			}
		}

		material := renderable.Material
		if material == "" {
			material = mesh.MaterialName
		}
		packet.Meshes = append(packet.Meshes, renderer.RenderMesh{
			GPUID:        mesh.GPUID,
			Model:        model,
			MaterialName: material,
		})
	}
	return packet
}

func modelMatrix(t world.TransformComponent) math.Mat4 {
	rotX := math.NewQuatFromAxisAngle(math.NewVec3(1, 0, 0), math.DegToRad(t.Rotation.X), true)
	rotY := math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 0), math.DegToRad(t.Rotation.Y), true)
	rotZ := math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.DegToRad(t.Rotation.Z), true)
	rotation := rotZ.Mul(rotY).Mul(rotX)
	return math.TransformFromPositionRotationScale(t.Position, rotation, t.Scale).GetLocal()
}

// RequestStop asks the frame loop to exit after the current frame. Safe
// from any goroutine, including signal handlers.
func (h *ApplicationHost) RequestStop() {
	h.running.Store(false)
}

// Shutdown tears everything down. In-flight loads drain first so no
// worker touches a subsystem that is already gone, then scenes unwind
// LIFO, then modules, then the plumbing underneath them.
func (h *ApplicationHost) Shutdown() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if h.initialized {
		if !h.loader.WaitForAll(5 * time.Second) {
			core.LogWarn("async loads still in flight after drain timeout")
		}
		h.loader.ProcessCompletedTasks(0)

		h.scenes.Shutdown()
		keep(h.modules.ShutdownAll())
		h.loader.Shutdown()
	}

	if h.quitSub != nil {
		h.quitSub.Close()
	}
	if h.resizeSub != nil {
		h.resizeSub.Close()
	}

	keep(h.renderer.Shutdown())
	keep(h.platform.Shutdown())
	keep(h.assets.Close())

	h.initialized = false
	core.LogInfo("%s down", h.cfg.Title)
	return firstErr
}

// Context exposes the shared AppContext, mainly so the embedding
// application can seed resources before the first frame.
func (h *ApplicationHost) Context() *systems.AppContext {
	return h.ctx
}

func (h *ApplicationHost) Scenes() *systems.SceneManager {
	return h.scenes
}

func (h *ApplicationHost) Modules() *systems.ModuleRegistry {
	return h.modules
}

func (h *ApplicationHost) Metrics() *core.Metrics {
	return h.metrics
}

func (h *ApplicationHost) Loader() *systems.AsyncResourceLoader {
	return h.loader
}

// Camera returns the view camera used when building render packets.
func (h *ApplicationHost) Camera() *components.Camera {
	return h.camera
}

// FramebufferSize returns the current width and height.
func (h *ApplicationHost) FramebufferSize() (uint32, uint32) {
	return h.width, h.height
}
