package systems

import (
	"fmt"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

type resourceAvailability int

const (
	availabilityMissing resourceAvailability = iota
	availabilityAvailable
	// availabilityUnsupported counts as ready: an unknown resource kind
	// must never block a scene from entering.
	availabilityUnsupported
)

type preloadState struct {
	requiredTotal int
	optionalTotal int
	requiredReady int
	optionalReady int

	missingRequired []string
	missingOptional []string

	completed bool
	// failed turns sticky once any required load reports failure. The
	// scene can still enter later if the resource appears by another
	// path.
	failed bool

	// pendingLoadTasks holds kind:identifier keys with an async load in
	// flight, so the same resource is never submitted twice.
	pendingLoadTasks map[string]struct{}

	lastReport *ScenePreloadProgressEvent
}

type sceneStackEntry struct {
	id       string
	scene    Scene
	manifest SceneResourceManifest

	attached bool
	entered  bool

	pendingEnterArgs *SceneEnterArgs
	lastSnapshot     *SceneSnapshot

	preload preloadState
}

type pendingTransition struct {
	targetID string
	args     SceneEnterArgs
	kind     TransitionKind
}

// SceneManager owns the scene stack and drives every scene through
// attach, preload, enter, update, exit and detach. All methods are
// main-thread; the only concurrency it touches is the async loader's
// completion callbacks, which also arrive on the main thread via
// ProcessCompletedTasks.
type SceneManager struct {
	ctx     *AppContext
	modules *ModuleRegistry

	factories map[string]SceneFactory
	stack     []*sceneStackEntry
	pending   *pendingTransition

	warnedUnknownKinds   map[resources.Kind]struct{}
	warnedNoAsyncSupport map[resources.Kind]struct{}
	warnedNilResources   bool
	warnedNilShaderCache bool
	warnedNilAsyncLoader bool
}

func NewSceneManager() *SceneManager {
	return &SceneManager{
		factories:            make(map[string]SceneFactory),
		warnedUnknownKinds:   make(map[resources.Kind]struct{}),
		warnedNoAsyncSupport: make(map[resources.Kind]struct{}),
	}
}

// Initialize wires the manager to its context. Required before any
// PushScene or Update call has an effect.
func (sm *SceneManager) Initialize(ctx *AppContext, modules *ModuleRegistry) error {
	if ctx == nil || modules == nil {
		return fmt.Errorf("scene manager requires a context and a module registry")
	}
	sm.ctx = ctx
	sm.modules = modules
	return nil
}

// RegisterSceneFactory stores the factory for a scene id, silently
// replacing any previous registration.
func (sm *SceneManager) RegisterSceneFactory(id string, factory SceneFactory) {
	if id == "" || factory == nil {
		core.LogError("scene manager: refusing to register empty scene id or nil factory")
		return
	}
	if _, exists := sm.factories[id]; exists {
		core.LogDebug("scene manager: factory for '%s' replaced", id)
	}
	sm.factories[id] = factory
}

// PushScene requests a deferred push of the scene registered under id.
// The scene is created on the next Update. Returns false when no
// factory is registered.
func (sm *SceneManager) PushScene(id string, args SceneEnterArgs) bool {
	return sm.requestTransition(TransitionPush, id, args)
}

// ReplaceScene requests a deferred replacement of the current top of
// stack. The popped scene's snapshot is forwarded into the new scene's
// enter args.
func (sm *SceneManager) ReplaceScene(id string, args SceneEnterArgs) bool {
	return sm.requestTransition(TransitionReplace, id, args)
}

func (sm *SceneManager) requestTransition(kind TransitionKind, id string, args SceneEnterArgs) bool {
	if _, ok := sm.factories[id]; !ok {
		core.LogError("scene manager: no factory registered for scene '%s'", id)
		return false
	}

	core.Publish(sm.bus(), SceneTransitionEvent{Kind: kind, SceneID: id})

	if sm.pending != nil {
		// Last writer wins: an unprocessed transition is replaced, not
		// queued.
		core.LogDebug("scene manager: pending transition to '%s' discarded for '%s'",
			sm.pending.targetID, id)
	}
	sm.pending = &pendingTransition{targetID: id, args: args, kind: kind}
	return true
}

// PopScene removes the top of stack immediately, running its exit and
// detach hooks, and returns the exit snapshot. Returns nil on an empty
// stack or when the scene never entered.
func (sm *SceneManager) PopScene(args SceneExitArgs) *SceneSnapshot {
	if len(sm.stack) == 0 {
		return nil
	}
	core.Publish(sm.bus(), SceneTransitionEvent{Kind: TransitionPop, SceneID: sm.stack[len(sm.stack)-1].id})
	return sm.popTop(args)
}

// popTop exits, detaches and removes the top entry without announcing a
// transition. Replace processing and shutdown come through here.
func (sm *SceneManager) popTop(args SceneExitArgs) *SceneSnapshot {
	if len(sm.stack) == 0 {
		return nil
	}
	entry := sm.stack[len(sm.stack)-1]
	snapshot := sm.exitScene(entry, args)
	sm.detachScene(entry)
	sm.stack = sm.stack[:len(sm.stack)-1]
	return snapshot
}

// Update drives the per-frame scene work: process the pending
// transition, poll preloading scenes, then update the entered top of
// stack. Lower stack entries are dormant and receive no update.
func (sm *SceneManager) Update(args *FrameUpdateArgs) {
	if sm.ctx == nil {
		return
	}
	sm.processPendingTransition()
	sm.processPreloadStates()

	if len(sm.stack) == 0 {
		return
	}
	top := sm.stack[len(sm.stack)-1]
	if top.entered {
		top.scene.OnUpdate(args)
	}
}

// Shutdown pops every scene LIFO so exit and detach hooks run for each.
func (sm *SceneManager) Shutdown() {
	sm.pending = nil
	for len(sm.stack) > 0 {
		sm.popTop(SceneExitArgs{Reason: ExitReasonShutdown})
	}
}

func (sm *SceneManager) SceneCount() int {
	return len(sm.stack)
}

// ActiveScene returns the id of the top of stack.
func (sm *SceneManager) ActiveScene() (string, bool) {
	if len(sm.stack) == 0 {
		return "", false
	}
	return sm.stack[len(sm.stack)-1].id, true
}

// ActiveSceneEntered reports whether the top of stack has entered.
func (sm *SceneManager) ActiveSceneEntered() bool {
	if len(sm.stack) == 0 {
		return false
	}
	return sm.stack[len(sm.stack)-1].entered
}

func (sm *SceneManager) bus() *core.EventBus {
	if sm.ctx == nil {
		return nil
	}
	return sm.ctx.EventBus
}

// findEntry re-locates a stack entry by scene id, newest first. Async
// completion callbacks come through here instead of holding entry
// pointers: by the time a callback fires the scene may be gone, and a
// nil result makes that a clean no-op.
func (sm *SceneManager) findEntry(id string) *sceneStackEntry {
	for i := len(sm.stack) - 1; i >= 0; i-- {
		if sm.stack[i].id == id {
			return sm.stack[i]
		}
	}
	return nil
}

func (sm *SceneManager) processPendingTransition() {
	if sm.pending == nil {
		return
	}
	pt := sm.pending
	sm.pending = nil

	args := pt.args
	if pt.kind == TransitionReplace && len(sm.stack) > 0 {
		args.PreviousSnapshot = sm.popTop(SceneExitArgs{Reason: ExitReasonReplace})
	}

	factory, ok := sm.factories[pt.targetID]
	if !ok {
		core.LogError("scene manager: factory for '%s' vanished before processing", pt.targetID)
		return
	}

	scene := sm.buildScene(pt.targetID, factory)
	if scene == nil {
		return
	}

	entry := &sceneStackEntry{
		id:               pt.targetID,
		scene:            scene,
		pendingEnterArgs: &args,
	}
	sm.stack = append(sm.stack, entry)

	if !sm.attachScene(entry) {
		sm.stack = sm.stack[:len(sm.stack)-1]
		return
	}

	entry.manifest = sm.buildManifest(entry)
	core.Publish(sm.bus(), SceneManifestEvent{
		SceneID:       entry.id,
		RequiredCount: entry.manifest.RequiredCount(),
		OptionalCount: entry.manifest.OptionalCount(),
	})

	sm.beginPreload(entry)
}

// buildScene runs the factory with panic containment: a broken factory
// fails the transition, not the frame.
func (sm *SceneManager) buildScene(id string, factory SceneFactory) (scene Scene) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("scene factory for '%s' panicked: %v", id, r)
			scene = nil
		}
	}()
	return factory()
}

func (sm *SceneManager) attachScene(entry *sceneStackEntry) bool {
	if sm.ctx == nil || sm.modules == nil {
		return false
	}
	if err := entry.scene.OnAttach(sm.ctx, sm.modules); err != nil {
		core.LogError("scene '%s' attach failed: %v", entry.id, err)
		return false
	}
	entry.attached = true
	core.Publish(sm.bus(), SceneLifecycleEvent{SceneID: entry.id, Stage: StageAttached})
	return true
}

func (sm *SceneManager) buildManifest(entry *sceneStackEntry) (manifest SceneResourceManifest) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("scene '%s' manifest build panicked: %v", entry.id, r)
			manifest = SceneResourceManifest{}
		}
	}()
	return entry.scene.BuildManifest()
}

// beginPreload initializes the preload bookkeeping from the manifest
// and runs one immediate availability pass, so an empty manifest enters
// within the same Update that created the scene.
func (sm *SceneManager) beginPreload(entry *sceneStackEntry) {
	entry.preload = preloadState{
		requiredTotal:    entry.manifest.RequiredCount(),
		optionalTotal:    entry.manifest.OptionalCount(),
		pendingLoadTasks: make(map[string]struct{}),
	}
	core.Publish(sm.bus(), SceneLifecycleEvent{SceneID: entry.id, Stage: StageEntering})
	sm.preloadTick(entry)
}

// processPreloadStates re-polls availability for every attached scene
// that has not entered yet. Availability is always re-derived from the
// registries: resources may appear through channels other than this
// manager's own loads.
func (sm *SceneManager) processPreloadStates() {
	for _, entry := range sm.stack {
		if !entry.attached || entry.entered {
			continue
		}
		sm.preloadTick(entry)
	}
}

func (sm *SceneManager) preloadTick(entry *sceneStackEntry) {
	sm.updatePreloadState(entry)
	sm.emitPreloadProgress(entry)
	sm.tryEnter(entry)
}

func (sm *SceneManager) updatePreloadState(entry *sceneStackEntry) {
	st := &entry.preload
	st.requiredReady = 0
	st.optionalReady = 0
	st.missingRequired = st.missingRequired[:0]
	st.missingOptional = st.missingOptional[:0]

	for _, req := range entry.manifest.Required {
		switch sm.checkResourceAvailability(req) {
		case availabilityAvailable, availabilityUnsupported:
			st.requiredReady++
		case availabilityMissing:
			st.missingRequired = append(st.missingRequired, req.Key())
			sm.beginAsyncLoad(entry, req)
		}
	}
	for _, req := range entry.manifest.Optional {
		switch sm.checkResourceAvailability(req) {
		case availabilityAvailable, availabilityUnsupported:
			st.optionalReady++
		case availabilityMissing:
			st.missingOptional = append(st.missingOptional, req.Key())
			sm.beginAsyncLoad(entry, req)
		}
	}

	// Optional resources never gate entry.
	st.completed = st.requiredReady >= st.requiredTotal
}

func (sm *SceneManager) checkResourceAvailability(req ResourceRequest) resourceAvailability {
	switch req.Kind {
	case resources.KindShader:
		if sm.ctx.ShaderCache == nil {
			if !sm.warnedNilShaderCache {
				sm.warnedNilShaderCache = true
				core.LogWarn("scene manager: no shader cache, shader resources treated as missing")
			}
			return availabilityMissing
		}
		if sm.ctx.ShaderCache.HasShader(req.Identifier) {
			return availabilityAvailable
		}
		return availabilityMissing
	case resources.KindMesh, resources.KindTexture, resources.KindMaterial,
		resources.KindModel, resources.KindSpriteAtlas, resources.KindFont:
		rm := sm.ctx.ResourceManager
		if rm == nil {
			if !sm.warnedNilResources {
				sm.warnedNilResources = true
				core.LogWarn("scene manager: no resource manager, resources treated as missing")
			}
			return availabilityMissing
		}
		switch req.Kind {
		case resources.KindMesh:
			if rm.HasMesh(req.Identifier) {
				return availabilityAvailable
			}
		case resources.KindTexture:
			if rm.HasTexture(req.Identifier) {
				return availabilityAvailable
			}
		case resources.KindMaterial:
			if rm.HasMaterial(req.Identifier) {
				return availabilityAvailable
			}
		case resources.KindModel:
			if rm.HasModel(req.Identifier) {
				return availabilityAvailable
			}
		case resources.KindSpriteAtlas:
			if rm.HasSpriteAtlas(req.Identifier) {
				return availabilityAvailable
			}
		case resources.KindFont:
			if rm.HasFont(req.Identifier) {
				return availabilityAvailable
			}
		}
		return availabilityMissing
	default:
		if _, warned := sm.warnedUnknownKinds[req.Kind]; !warned {
			sm.warnedUnknownKinds[req.Kind] = struct{}{}
			core.LogWarn("scene manager: unknown resource kind '%s', treating as available", req.Kind)
		}
		return availabilityUnsupported
	}
}

// beginAsyncLoad submits a load for a missing resource unless one is
// already in flight for the same kind:identifier key.
func (sm *SceneManager) beginAsyncLoad(entry *sceneStackEntry, req ResourceRequest) {
	key := req.Key()
	if _, inFlight := entry.preload.pendingLoadTasks[key]; inFlight {
		return
	}

	loader := sm.ctx.AsyncLoader
	if loader == nil {
		if !sm.warnedNilAsyncLoader {
			sm.warnedNilAsyncLoader = true
			core.LogWarn("scene manager: no async loader, missing resources stay missing")
		}
		return
	}

	switch req.Kind {
	case resources.KindMesh, resources.KindTexture, resources.KindModel:
	default:
		if _, warned := sm.warnedNoAsyncSupport[req.Kind]; !warned {
			sm.warnedNoAsyncSupport[req.Kind] = struct{}{}
			core.LogWarn("scene manager: resource kind '%s' has no async load path, '%s' must be pre-registered",
				req.Kind, req.Identifier)
		}
		return
	}

	priority := PriorityOptional
	if !req.Optional {
		priority = PriorityRequired
	}

	source := req.ResolveSource()
	if sm.ctx.Assets != nil {
		if path, ok := sm.ctx.Assets.Resolve(source, req.Kind); ok {
			source = path
		}
	}

	sceneID := entry.id
	callback := func(result LoadResult) {
		if result.IsSuccess() {
			sm.registerLoadedResource(req, result)
		} else if !req.Optional {
			if e := sm.findEntry(sceneID); e != nil {
				e.preload.failed = true
			}
		}
		// The entry is re-located by id: the scene may have been popped
		// while the load was in flight, in which case this is a no-op.
		if e := sm.findEntry(sceneID); e != nil {
			delete(e.preload.pendingLoadTasks, key)
		}
	}

	switch req.Kind {
	case resources.KindMesh:
		loader.LoadMeshAsync(source, req.Identifier, callback, priority)
	case resources.KindTexture:
		loader.LoadTextureAsync(source, req.Identifier, callback, priority)
	case resources.KindModel:
		loader.LoadModelAsync(source, req.Identifier, callback, priority)
	}
	entry.preload.pendingLoadTasks[key] = struct{}{}
	core.LogDebug("scene '%s': async load submitted for %s", sceneID, key)
}

func (sm *SceneManager) registerLoadedResource(req ResourceRequest, result LoadResult) {
	rm := sm.ctx.ResourceManager
	if rm == nil {
		return
	}
	switch req.Kind {
	case resources.KindMesh:
		if mesh, ok := result.Resource.(*resources.Mesh); ok {
			rm.RegisterMesh(req.Identifier, mesh)
		}
	case resources.KindTexture:
		if texture, ok := result.Resource.(*resources.Texture); ok {
			rm.RegisterTexture(req.Identifier, texture)
		}
	case resources.KindModel:
		if data, ok := result.Resource.(*resources.ModelData); ok {
			rm.RegisterModel(req.Identifier, &resources.Model{
				Name:      req.Identifier,
				Meshes:    data.MeshNames,
				Materials: data.MaterialNames,
			})
		}
	}
}

// emitPreloadProgress publishes progress only on change. Counts, flags
// and missing-list sizes are compared against the last report; a tick
// that changes nothing emits nothing.
func (sm *SceneManager) emitPreloadProgress(entry *sceneStackEntry) {
	st := &entry.preload
	event := ScenePreloadProgressEvent{
		SceneID:         entry.id,
		RequiredReady:   st.requiredReady,
		RequiredTotal:   st.requiredTotal,
		OptionalReady:   st.optionalReady,
		OptionalTotal:   st.optionalTotal,
		Completed:       st.completed,
		Failed:          st.failed,
		MissingRequired: append([]string(nil), st.missingRequired...),
		MissingOptional: append([]string(nil), st.missingOptional...),
	}

	if prev := st.lastReport; prev != nil &&
		prev.RequiredReady == event.RequiredReady &&
		prev.OptionalReady == event.OptionalReady &&
		prev.Completed == event.Completed &&
		prev.Failed == event.Failed &&
		len(prev.MissingRequired) == len(event.MissingRequired) &&
		len(prev.MissingOptional) == len(event.MissingOptional) {
		return
	}

	st.lastReport = &event
	core.Publish(sm.bus(), event)
}

func (sm *SceneManager) tryEnter(entry *sceneStackEntry) {
	if entry.entered || !entry.preload.completed || entry.pendingEnterArgs == nil {
		return
	}

	if err := sm.enterScene(entry); err != nil {
		// Recoverable: args stay put and entry is retried next tick.
		core.LogError("scene '%s' enter failed, will retry: %v", entry.id, err)
		return
	}

	entry.entered = true
	entry.pendingEnterArgs = nil
	core.Publish(sm.bus(), SceneLifecycleEvent{SceneID: entry.id, Stage: StageEntered})
	core.LogInfo("scene '%s' entered", entry.id)
}

func (sm *SceneManager) enterScene(entry *sceneStackEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enter panic: %v", r)
		}
	}()
	return entry.scene.OnEnter(*entry.pendingEnterArgs)
}

func (sm *SceneManager) exitScene(entry *sceneStackEntry, args SceneExitArgs) *SceneSnapshot {
	if !entry.entered {
		return nil
	}
	core.Publish(sm.bus(), SceneLifecycleEvent{SceneID: entry.id, Stage: StageExiting})

	snapshot := sm.captureExit(entry, args)
	entry.entered = false
	entry.lastSnapshot = snapshot

	core.Publish(sm.bus(), SceneLifecycleEvent{SceneID: entry.id, Stage: StageExited})
	return snapshot
}

func (sm *SceneManager) captureExit(entry *sceneStackEntry, args SceneExitArgs) (snapshot *SceneSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("scene '%s' exit panicked: %v", entry.id, r)
			fallback := NewSceneSnapshot(entry.id)
			snapshot = &fallback
		}
	}()
	snap := entry.scene.OnExit(args)
	return &snap
}

func (sm *SceneManager) detachScene(entry *sceneStackEntry) {
	if !entry.attached {
		return
	}
	sm.runDetach(entry)
	sm.releaseSceneResources(entry)
	entry.attached = false
	core.Publish(sm.bus(), SceneLifecycleEvent{SceneID: entry.id, Stage: StageDetached})
}

func (sm *SceneManager) runDetach(entry *sceneStackEntry) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("scene '%s' detach panicked: %v", entry.id, r)
		}
	}()
	entry.scene.OnDetach(sm.ctx)
}

// releaseSceneResources removes Scene-scoped manifest resources from
// the registry. Shared-scoped resources outlive the scene.
func (sm *SceneManager) releaseSceneResources(entry *sceneStackEntry) {
	rm := sm.ctx.ResourceManager
	if rm == nil {
		return
	}
	release := func(reqs []ResourceRequest) {
		for _, req := range reqs {
			if req.Scope != ScopeScene {
				continue
			}
			if rm.removeByKind(req.Kind, req.Identifier) {
				core.LogDebug("scene '%s': released %s", entry.id, req.Key())
			}
		}
	}
	release(entry.manifest.Required)
	release(entry.manifest.Optional)
}
