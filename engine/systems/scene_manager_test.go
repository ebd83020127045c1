package systems

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penumbra-engine/penumbra/engine/assets"
	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/renderer"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// stubScene records every hook invocation so tests can assert ordering
// and counts.
type stubScene struct {
	id       string
	manifest SceneResourceManifest
	hookLog  *[]string

	attachErr   error
	enterFails  int
	enterPanics int
	exitData    map[string]string

	attachCount int
	enterCount  int
	updateCount int
	exitCount   int
	detachCount int

	lastEnterArgs  SceneEnterArgs
	lastExitReason ExitReason
}

func (s *stubScene) record(hook string) {
	if s.hookLog != nil {
		*s.hookLog = append(*s.hookLog, s.id+":"+hook)
	}
}

func (s *stubScene) OnAttach(ctx *AppContext, modules *ModuleRegistry) error {
	s.attachCount++
	s.record("attach")
	return s.attachErr
}

func (s *stubScene) OnDetach(ctx *AppContext) {
	s.detachCount++
	s.record("detach")
}

func (s *stubScene) BuildManifest() SceneResourceManifest {
	return s.manifest
}

func (s *stubScene) OnEnter(args SceneEnterArgs) error {
	s.lastEnterArgs = args
	if s.enterPanics > 0 {
		s.enterPanics--
		panic("enter not ready")
	}
	if s.enterFails > 0 {
		s.enterFails--
		return fmt.Errorf("enter not ready")
	}
	s.enterCount++
	s.record("enter")
	return nil
}

func (s *stubScene) OnUpdate(args *FrameUpdateArgs) {
	s.updateCount++
}

func (s *stubScene) OnExit(args SceneExitArgs) SceneSnapshot {
	s.exitCount++
	s.lastExitReason = args.Reason
	s.record("exit")
	snapshot := NewSceneSnapshot(s.id)
	for k, v := range s.exitData {
		snapshot.Data[k] = v
	}
	return snapshot
}

type sceneManagerFixture struct {
	sm       *SceneManager
	ctx      *AppContext
	bus      *core.EventBus
	rm       *ResourceManager
	cache    *ShaderCache
	loader   *AsyncResourceLoader
	renderer *renderer.HeadlessRenderer
	root     string

	transitions []SceneTransitionEvent
	lifecycle   []SceneLifecycleEvent
	manifests   []SceneManifestEvent
	progress    []ScenePreloadProgressEvent
}

func newSceneManagerFixture(t *testing.T) *sceneManagerFixture {
	t.Helper()
	f := &sceneManagerFixture{
		bus:   core.NewEventBus(),
		rm:    NewResourceManager(),
		cache: NewShaderCache(),
		root:  t.TempDir(),
	}

	am, err := assets.NewAssetManager(f.bus)
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Close() })
	require.NoError(t, am.Initialize(f.root))

	f.renderer = renderer.NewHeadless()
	require.NoError(t, f.renderer.Initialize("scene-test", 640, 480))

	f.loader = NewAsyncResourceLoader(am, f.renderer)
	require.NoError(t, f.loader.Initialize(2))
	t.Cleanup(f.loader.Shutdown)

	f.ctx = &AppContext{
		EventBus:        f.bus,
		Assets:          am,
		Renderer:        f.renderer,
		ResourceManager: f.rm,
		AsyncLoader:     f.loader,
		ShaderCache:     f.cache,
	}

	f.sm = NewSceneManager()
	require.NoError(t, f.sm.Initialize(f.ctx, NewModuleRegistry()))

	core.Subscribe(f.bus, core.PriorityNormal, func(e SceneTransitionEvent) { f.transitions = append(f.transitions, e) })
	core.Subscribe(f.bus, core.PriorityNormal, func(e SceneLifecycleEvent) { f.lifecycle = append(f.lifecycle, e) })
	core.Subscribe(f.bus, core.PriorityNormal, func(e SceneManifestEvent) { f.manifests = append(f.manifests, e) })
	core.Subscribe(f.bus, core.PriorityNormal, func(e ScenePreloadProgressEvent) { f.progress = append(f.progress, e) })
	return f
}

func (f *sceneManagerFixture) registerStub(scene *stubScene) {
	f.sm.RegisterSceneFactory(scene.id, func() Scene { return scene })
}

func (f *sceneManagerFixture) update() {
	f.sm.Update(&FrameUpdateArgs{DeltaTime: 0.016})
}

// pump mirrors one host frame: finished uploads first, then the scene
// manager tick.
func (f *sceneManagerFixture) pump() {
	f.loader.ProcessCompletedTasks(8)
	f.update()
}

func (f *sceneManagerFixture) stages(sceneID string) []LifecycleStage {
	var out []LifecycleStage
	for _, e := range f.lifecycle {
		if e.SceneID == sceneID {
			out = append(out, e.Stage)
		}
	}
	return out
}

func (f *sceneManagerFixture) writeTriangle(t *testing.T) string {
	t.Helper()
	path := filepath.Join(f.root, "tri.obj")
	require.NoError(t, writeFixtureFile(path, triangleOBJ))
	return path
}

func TestSceneManagerPushIsDeferred(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1"}
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	assert.Equal(t, 0, f.sm.SceneCount(), "push happens on the next Update, not immediately")
	require.Len(t, f.transitions, 1)
	assert.Equal(t, TransitionPush, f.transitions[0].Kind)

	f.update()
	assert.Equal(t, 1, f.sm.SceneCount())
	assert.Equal(t, 1, s1.attachCount)
}

func TestSceneManagerPushUnknownSceneEmitsNothing(t *testing.T) {
	f := newSceneManagerFixture(t)

	assert.False(t, f.sm.PushScene("ghost", SceneEnterArgs{}))
	assert.Empty(t, f.transitions, "a rejected push must not announce a transition")

	f.update()
	assert.Equal(t, 0, f.sm.SceneCount())
}

func TestSceneManagerLastTransitionWins(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1Built := 0
	f.sm.RegisterSceneFactory("s1", func() Scene { s1Built++; return &stubScene{id: "s1"} })
	s2 := &stubScene{id: "s2"}
	f.registerStub(s2)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	require.True(t, f.sm.PushScene("s2", SceneEnterArgs{}))
	f.update()

	assert.Equal(t, 1, f.sm.SceneCount())
	id, ok := f.sm.ActiveScene()
	require.True(t, ok)
	assert.Equal(t, "s2", id)
	assert.Zero(t, s1Built, "the overwritten transition never builds its scene")
	assert.Len(t, f.transitions, 2, "both intents are announced even though one is discarded")
}

func TestSceneManagerEmptyManifestEntersSameUpdate(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1"}
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{Props: map[string]string{"mode": "demo"}}))
	f.update()

	assert.Equal(t, 1, s1.attachCount)
	assert.Equal(t, 1, s1.enterCount)
	assert.Equal(t, 1, s1.updateCount, "an entered top of stack updates in the same tick")
	assert.Equal(t, "demo", s1.lastEnterArgs.Props["mode"])
	assert.Equal(t, []LifecycleStage{StageAttached, StageEntering, StageEntered}, f.stages("s1"))

	require.Len(t, f.manifests, 1)
	assert.Zero(t, f.manifests[0].RequiredCount)
}

func TestSceneManagerAsyncPreloadGatesEntry(t *testing.T) {
	f := newSceneManagerFixture(t)
	objPath := f.writeTriangle(t)

	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{
		Identifier: "tri", Source: objPath, Kind: resources.KindMesh, Scope: ScopeScene,
	})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()

	assert.Equal(t, 1, s1.attachCount)
	assert.Zero(t, s1.enterCount, "entry must wait for the required mesh")
	assert.Zero(t, s1.updateCount)
	assert.Equal(t, 1, f.loader.InFlight())

	require.NotEmpty(t, f.progress)
	first := f.progress[0]
	assert.Equal(t, 0, first.RequiredReady)
	assert.Equal(t, 1, first.RequiredTotal)
	assert.False(t, first.Completed)
	assert.Contains(t, first.MissingRequired, "mesh:tri")

	require.True(t, f.loader.WaitForAll(2*time.Second))

	// The load finished on a worker, but until the completed queue is
	// processed the resource does not exist for anyone.
	f.update()
	assert.Zero(t, s1.enterCount)
	assert.False(t, f.rm.HasMesh("tri"))

	f.loader.ProcessCompletedTasks(8)
	assert.True(t, f.rm.HasMesh("tri"))

	f.update()
	assert.Equal(t, 1, s1.enterCount)
	assert.Equal(t, 1, s1.updateCount)

	entered := 0
	for _, e := range f.lifecycle {
		if e.SceneID == "s1" && e.Stage == StageEntered {
			entered++
		}
	}
	assert.Equal(t, 1, entered)

	last := f.progress[len(f.progress)-1]
	assert.Equal(t, 1, last.RequiredReady)
	assert.True(t, last.Completed)
}

func TestSceneManagerNeverResubmitsPendingLoads(t *testing.T) {
	f := newSceneManagerFixture(t)
	objPath := f.writeTriangle(t)

	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{Identifier: "tri", Source: objPath, Kind: resources.KindMesh})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	f.update()
	f.update()

	assert.Equal(t, 1, f.loader.InFlight(), "one in-flight load per kind:identifier, however many ticks pass")
}

func TestSceneManagerReplaceForwardsSnapshot(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1", exitData: map[string]string{"score": "42"}}
	s2 := &stubScene{id: "s2"}
	f.registerStub(s1)
	f.registerStub(s2)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	require.Equal(t, 1, s1.enterCount)

	require.True(t, f.sm.ReplaceScene("s2", SceneEnterArgs{}))
	f.update()

	assert.Equal(t, 1, s1.exitCount)
	assert.Equal(t, ExitReasonReplace, s1.lastExitReason)
	assert.Equal(t, 1, s1.detachCount)

	assert.Equal(t, 1, f.sm.SceneCount())
	assert.Equal(t, 1, s2.enterCount, "an empty manifest attaches and enters within one Update")

	snapshot := s2.lastEnterArgs.PreviousSnapshot
	require.NotNil(t, snapshot)
	assert.Equal(t, "s1", snapshot.SceneID)
	assert.Equal(t, "42", snapshot.Data["score"])
}

func TestSceneManagerDetachReleasesSceneScopedResources(t *testing.T) {
	f := newSceneManagerFixture(t)
	require.True(t, f.rm.RegisterMesh("tri", &resources.Mesh{Name: "tri"}))
	require.True(t, f.rm.RegisterTexture("dust", &resources.Texture{Name: "dust"}))

	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{Identifier: "tri", Kind: resources.KindMesh, Scope: ScopeScene})
	s1.manifest.AddRequired(ResourceRequest{Identifier: "dust", Kind: resources.KindTexture, Scope: ScopeShared})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	require.Equal(t, 1, s1.enterCount, "pre-registered resources satisfy the manifest immediately")

	require.NotNil(t, f.sm.PopScene(SceneExitArgs{Reason: ExitReasonPop}))

	assert.False(t, f.rm.HasMesh("tri"), "scene-scoped resources release on detach")
	assert.True(t, f.rm.HasTexture("dust"), "shared resources survive the scene")
}

func TestSceneManagerPopEmptyStack(t *testing.T) {
	f := newSceneManagerFixture(t)

	assert.Nil(t, f.sm.PopScene(SceneExitArgs{Reason: ExitReasonPop}))
	assert.Empty(t, f.transitions)
	assert.Empty(t, f.lifecycle)
}

func TestSceneManagerPopIsSynchronous(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1"}
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()

	snapshot := f.sm.PopScene(SceneExitArgs{Reason: ExitReasonPop})
	require.NotNil(t, snapshot)
	assert.Equal(t, "s1", snapshot.SceneID)
	assert.Equal(t, 0, f.sm.SceneCount(), "pop takes effect before the next Update")
	assert.Equal(t, ExitReasonPop, s1.lastExitReason)
	assert.Equal(t, []LifecycleStage{
		StageAttached, StageEntering, StageEntered,
		StageExiting, StageExited, StageDetached,
	}, f.stages("s1"))
}

func TestSceneManagerEnterErrorRetriesNextTick(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1", enterFails: 1}
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{Props: map[string]string{"k": "v"}}))
	f.update()
	assert.Zero(t, s1.enterCount)
	assert.Zero(t, s1.updateCount, "a scene that failed to enter must not update")
	assert.False(t, f.sm.ActiveSceneEntered())

	f.update()
	assert.Equal(t, 1, s1.enterCount)
	assert.Equal(t, "v", s1.lastEnterArgs.Props["k"], "enter args survive the failed attempt")

	entered := 0
	for _, e := range f.lifecycle {
		if e.Stage == StageEntered {
			entered++
		}
	}
	assert.Equal(t, 1, entered)
}

func TestSceneManagerEnterPanicRetriesNextTick(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1", enterPanics: 1}
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	assert.NotPanics(t, f.update)
	assert.Zero(t, s1.enterCount)

	f.update()
	assert.Equal(t, 1, s1.enterCount)
}

func TestSceneManagerUnknownKindFailsOpen(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{Identifier: "weird", Kind: resources.Kind("blob")})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()

	assert.Equal(t, 1, s1.enterCount, "unknown kinds count ready instead of gating entry forever")
	assert.Zero(t, f.loader.InFlight())
}

func TestSceneManagerUnsupportedAsyncKindWaitsForRegistration(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{Identifier: "arial", Kind: resources.KindFont})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	f.update()

	assert.Zero(t, s1.enterCount)
	assert.Zero(t, f.loader.InFlight(), "fonts have no async path, nothing may be submitted")
	require.NotEmpty(t, f.progress)
	assert.Contains(t, f.progress[0].MissingRequired, "font:arial")

	// Availability is re-derived every tick, so a registration from
	// anywhere unblocks the scene.
	require.True(t, f.rm.RegisterFont("arial", &resources.Font{Face: "Arial"}))
	f.update()
	assert.Equal(t, 1, s1.enterCount)
}

func TestSceneManagerShaderAvailabilityComesFromCache(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{Identifier: "world_shader", Kind: resources.KindShader})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	assert.Zero(t, s1.enterCount)

	require.True(t, f.cache.Register(&resources.ShaderConfig{Name: "world_shader"}))
	f.update()
	assert.Equal(t, 1, s1.enterCount)
}

func TestSceneManagerNilResourceManagerTreatsResourcesMissing(t *testing.T) {
	f := newSceneManagerFixture(t)
	f.ctx.ResourceManager = nil

	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{Identifier: "tri", Kind: resources.KindMesh})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	assert.NotPanics(t, f.update)
	assert.NotPanics(t, f.update)
	assert.Zero(t, s1.enterCount)
}

func TestSceneManagerLateCallbackAfterPopIsHarmless(t *testing.T) {
	f := newSceneManagerFixture(t)
	objPath := f.writeTriangle(t)

	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{Identifier: "tri", Source: objPath, Kind: resources.KindMesh, Scope: ScopeScene})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	require.Equal(t, 1, f.loader.InFlight())

	assert.Nil(t, f.sm.PopScene(SceneExitArgs{Reason: ExitReasonPop}), "a scene that never entered has no snapshot")
	assert.Equal(t, 0, f.sm.SceneCount())

	require.True(t, f.loader.WaitForAll(2*time.Second))
	assert.NotPanics(t, func() { f.loader.ProcessCompletedTasks(8) })

	// The load itself is not wasted; the registry keeps the mesh for
	// whoever asks next.
	assert.True(t, f.rm.HasMesh("tri"))
}

func TestSceneManagerOnlyTopSceneUpdates(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1"}
	s2 := &stubScene{id: "s2"}
	f.registerStub(s1)
	f.registerStub(s2)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	require.Equal(t, 1, s1.updateCount)

	require.True(t, f.sm.PushScene("s2", SceneEnterArgs{}))
	f.update()
	f.update()

	assert.Equal(t, 2, f.sm.SceneCount())
	assert.Equal(t, 1, s1.updateCount, "a covered scene stays dormant")
	assert.Equal(t, 2, s2.updateCount)
	assert.Zero(t, s1.exitCount, "pushing on top does not exit the scene below")

	id, ok := f.sm.ActiveScene()
	require.True(t, ok)
	assert.Equal(t, "s2", id)
}

func TestSceneManagerShutdownPopsEverythingInReverse(t *testing.T) {
	f := newSceneManagerFixture(t)
	var log []string
	s1 := &stubScene{id: "s1", hookLog: &log}
	s2 := &stubScene{id: "s2", hookLog: &log}
	f.registerStub(s1)
	f.registerStub(s2)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	require.True(t, f.sm.PushScene("s2", SceneEnterArgs{}))
	f.update()

	log = log[:0]
	f.sm.Shutdown()

	assert.Equal(t, 0, f.sm.SceneCount())
	assert.Equal(t, []string{"s2:exit", "s2:detach", "s1:exit", "s1:detach"}, log)
	assert.Equal(t, ExitReasonShutdown, s1.lastExitReason)
	assert.Equal(t, ExitReasonShutdown, s2.lastExitReason)
}

func TestSceneManagerProgressEventsAreEdgeTriggered(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{Identifier: "arial", Kind: resources.KindFont})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	require.Len(t, f.progress, 1)

	f.update()
	f.update()
	assert.Len(t, f.progress, 1, "unchanged preload state emits nothing")

	require.True(t, f.rm.RegisterFont("arial", &resources.Font{Face: "Arial"}))
	f.update()
	require.Len(t, f.progress, 2)
	assert.True(t, f.progress[1].Completed)
}

func TestSceneManagerModelLoadRegistersModel(t *testing.T) {
	f := newSceneManagerFixture(t)
	modelPath := filepath.Join(f.root, "boulder.model")
	require.NoError(t, writeFixtureFile(modelPath, boulderModel))

	s1 := &stubScene{id: "s1"}
	s1.manifest.AddRequired(ResourceRequest{Identifier: "boulder", Source: modelPath, Kind: resources.KindModel})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()
	require.True(t, f.loader.WaitForAll(2*time.Second))

	f.pump()
	assert.Equal(t, 1, s1.enterCount)

	model, ok := f.rm.GetModel("boulder")
	require.True(t, ok)
	assert.Equal(t, []string{"rock"}, model.Meshes)
	assert.Equal(t, []string{"stone"}, model.Materials)
}

func TestSceneManagerOptionalResourcesNeverGateEntry(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1"}
	s1.manifest.AddOptional(ResourceRequest{
		Identifier: "extra", Source: filepath.Join(f.root, "missing.obj"), Kind: resources.KindMesh,
	})
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()

	assert.Equal(t, 1, s1.enterCount, "optional resources never block entry")

	require.True(t, f.loader.WaitForAll(2*time.Second))
	f.loader.ProcessCompletedTasks(8)

	require.NotEmpty(t, f.progress)
	for _, e := range f.progress {
		assert.False(t, e.Failed, "optional failures must not raise the failed flag")
	}
}

func TestSceneManagerAttachFailureAbortsTransition(t *testing.T) {
	f := newSceneManagerFixture(t)
	s1 := &stubScene{id: "s1", attachErr: fmt.Errorf("no display")}
	f.registerStub(s1)

	require.True(t, f.sm.PushScene("s1", SceneEnterArgs{}))
	f.update()

	assert.Equal(t, 0, f.sm.SceneCount())
	assert.Empty(t, f.stages("s1"))
	assert.Zero(t, s1.enterCount)
}

func TestSceneManagerFactoryValidation(t *testing.T) {
	f := newSceneManagerFixture(t)

	f.sm.RegisterSceneFactory("", func() Scene { return &stubScene{} })
	f.sm.RegisterSceneFactory("nil", nil)

	assert.False(t, f.sm.PushScene("", SceneEnterArgs{}))
	assert.False(t, f.sm.PushScene("nil", SceneEnterArgs{}))
}

func TestSceneManagerFactoryPanicAbortsTransition(t *testing.T) {
	f := newSceneManagerFixture(t)
	f.sm.RegisterSceneFactory("broken", func() Scene { panic("bad wiring") })

	require.True(t, f.sm.PushScene("broken", SceneEnterArgs{}))
	assert.NotPanics(t, f.update)
	assert.Equal(t, 0, f.sm.SceneCount())
}
