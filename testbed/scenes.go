package testbed

import (
	"fmt"
	"strconv"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/math"
	"github.com/penumbra-engine/penumbra/engine/resources"
	"github.com/penumbra-engine/penumbra/engine/systems"
	"github.com/penumbra-engine/penumbra/engine/world"
)

const (
	// worldCycleFrames is how long the world scene runs before handing
	// off to the stress scene. 600 frames is ten seconds at 60 fps.
	worldCycleFrames = 600
	// stressSoakFrames is how long the stress scene soaks before
	// handing back.
	stressSoakFrames = 240
	// stressMeshCount is the size of the generated stress manifest.
	stressMeshCount = 48

	worldGridSize    = 3
	stressGridStride = 8

	snapshotKeyScore = "score"
	snapshotKeyWorld = "world_state"
)

// advanceSpin rotates every spinning entity by its own rate.
func advanceSpin(w *world.World, delta float64) {
	for _, id := range w.EntitiesWith(world.ComponentSpin) {
		spinValue, _ := w.Component(id, world.ComponentSpin)
		spin, ok := spinValue.(world.SpinComponent)
		if !ok {
			continue
		}
		transformValue, _ := w.Component(id, world.ComponentTransform)
		transform, ok := transformValue.(world.TransformComponent)
		if !ok {
			continue
		}
		transform.Rotation.Y += spin.DegreesPerSecond * float32(delta)
		for transform.Rotation.Y >= 360 {
			transform.Rotation.Y -= 360
		}
		w.SetComponent(id, world.ComponentTransform, transform)
	}
}

// bootScene owns the resources every other scene leans on: the shared
// crate material and the world shader config. It needs nothing loaded
// itself, so it enters on its first update and immediately pushes the
// world scene on top.
type bootScene struct {
	ctx    *systems.AppContext
	scenes *systems.SceneManager
	pushed bool
}

func newBootScene(scenes *systems.SceneManager) *bootScene {
	return &bootScene{scenes: scenes}
}

func (s *bootScene) OnAttach(ctx *systems.AppContext, _ *systems.ModuleRegistry) error {
	s.ctx = ctx
	return nil
}

func (s *bootScene) OnDetach(*systems.AppContext) {}

func (s *bootScene) BuildManifest() systems.SceneResourceManifest {
	return systems.SceneResourceManifest{}
}

func (s *bootScene) OnEnter(systems.SceneEnterArgs) error {
	core.LogInfo("boot: registering shared resources")
	s.registerSharedResources()
	return nil
}

// registerSharedResources loads the crate material from the asset pack
// and keeps a reference on it so the idle sweep never reclaims it. The
// demo still runs without the asset pack; a flat fallback material is
// registered instead.
func (s *bootScene) registerSharedResources() {
	rm := s.ctx.ResourceManager
	am := s.ctx.Assets

	if path, ok := am.Resolve(materialCrate, resources.KindMaterial); ok {
		if asset, err := am.Load(path, resources.KindMaterial, nil); err == nil {
			if cfg, ok := asset.Data.(*resources.MaterialConfig); ok {
				rm.RegisterMaterial(cfg.Name, resources.NewMaterialFromConfig(cfg))
			}
		} else {
			core.LogWarn("boot: crate material failed to load: %v", err)
		}
	}
	if !rm.HasMaterial(materialCrate) {
		rm.RegisterMaterial(materialCrate, &resources.Material{
			Name:          materialCrate,
			DiffuseColour: math.NewVec4One(),
			Shininess:     8,
		})
	}
	rm.AcquireMaterial(materialCrate)

	if err := s.ctx.ShaderCache.LoadFromFile(am, shaderWorld); err != nil {
		core.LogWarn("boot: world shader config unavailable: %v", err)
	}
}

func (s *bootScene) OnUpdate(*systems.FrameUpdateArgs) {
	if s.pushed {
		return
	}
	s.pushed = true
	core.LogInfo("boot: handing off to the world scene")
	s.scenes.PushScene(sceneWorld, systems.SceneEnterArgs{
		Props: map[string]string{"spawned_by": sceneBoot},
	})
}

func (s *bootScene) OnExit(systems.SceneExitArgs) systems.SceneSnapshot {
	s.ctx.ResourceManager.ReleaseMaterial(materialCrate)
	return systems.NewSceneSnapshot(sceneBoot)
}

// worldScene is the steady-state of the demo: a grid of spinning
// crates. Its score counts the updates it has survived; score and the
// serialized world travel through the exit snapshot so a later entry
// resumes instead of starting over.
type worldScene struct {
	ctx        *systems.AppContext
	scenes     *systems.SceneManager
	serializer *systems.SceneSerializer

	score       int
	frames      uint64
	textureHeld bool
}

func newWorldScene(scenes *systems.SceneManager) *worldScene {
	return &worldScene{scenes: scenes}
}

func (s *worldScene) OnAttach(ctx *systems.AppContext, _ *systems.ModuleRegistry) error {
	s.ctx = ctx
	s.serializer = systems.NewSceneSerializer(ctx)
	return nil
}

func (s *worldScene) OnDetach(*systems.AppContext) {}

func (s *worldScene) BuildManifest() systems.SceneResourceManifest {
	var m systems.SceneResourceManifest
	m.AddRequired(systems.ResourceRequest{
		Identifier: meshCube,
		Kind:       resources.KindMesh,
		Source:     "meshes/cube.obj",
		Scope:      systems.ScopeScene,
	})
	m.AddRequired(systems.ResourceRequest{
		Identifier: materialCrate,
		Kind:       resources.KindMaterial,
		Scope:      systems.ScopeShared,
	})
	m.AddOptional(systems.ResourceRequest{
		Identifier: textureCrate,
		Kind:       resources.KindTexture,
		Source:     "textures/crate.png",
		Scope:      systems.ScopeScene,
	})
	m.AddOptional(systems.ResourceRequest{
		Identifier: modelRock,
		Kind:       resources.KindModel,
		Source:     "models/rock.model",
		Scope:      systems.ScopeScene,
	})
	return m
}

func (s *worldScene) OnEnter(args systems.SceneEnterArgs) error {
	if by, ok := args.Props["spawned_by"]; ok {
		core.LogInfo("world: entered via '%s'", by)
	}
	s.frames = 0
	s.textureHeld = false

	rm := s.ctx.ResourceManager
	rm.AcquireMesh(meshCube)
	rm.AcquireMaterial(materialCrate)

	if snap := args.PreviousSnapshot; snap != nil {
		if v, err := strconv.Atoi(snap.Data[snapshotKeyScore]); err == nil {
			s.score = v
		}
		if blob, ok := snap.Data[snapshotKeyWorld]; ok && s.serializer.LoadScene([]byte(blob)) {
			core.LogInfo("world: restored %d entities, score %d", s.ctx.World.EntityCount(), s.score)
			return nil
		}
	}
	s.spawnCrates()
	return nil
}

func (s *worldScene) spawnCrates() {
	w := s.ctx.World
	w.Clear()
	for row := 0; row < worldGridSize; row++ {
		for col := 0; col < worldGridSize; col++ {
			id := w.CreateEntity()
			transform := world.NewTransformComponent()
			transform.Position = math.NewVec3(float32(col)*2.5, 0, float32(row)*2.5)
			w.SetComponent(id, world.ComponentTransform, transform)
			w.SetComponent(id, world.ComponentRenderable, world.RenderableComponent{
				Mesh:     meshCube,
				Material: materialCrate,
				Visible:  true,
			})
			w.SetComponent(id, world.ComponentSpin, world.SpinComponent{
				DegreesPerSecond: 45 + float32(row*worldGridSize+col)*10,
			})
			w.SetComponent(id, world.ComponentLabel, world.LabelComponent{
				Text: fmt.Sprintf("crate_%d_%d", row, col),
			})
		}
	}
	core.LogInfo("world: spawned %d crates", w.EntityCount())
}

func (s *worldScene) OnUpdate(args *systems.FrameUpdateArgs) {
	if s.ctx.Input.IsKeyPressed(core.KeyEscape) {
		core.Publish(s.ctx.EventBus, core.QuitRequestedEvent{})
		return
	}

	s.frames++
	s.score++
	advanceSpin(s.ctx.World, args.DeltaTime)

	// The crate texture is optional; grab a reference once the async
	// load lands so the sweep leaves it alone.
	if !s.textureHeld && s.ctx.ResourceManager.HasTexture(textureCrate) {
		s.ctx.ResourceManager.AcquireTexture(textureCrate)
		s.textureHeld = true
	}

	if s.frames >= worldCycleFrames {
		s.scenes.ReplaceScene(sceneStress, systems.SceneEnterArgs{
			Props: map[string]string{"spawned_by": sceneWorld},
		})
	}
}

func (s *worldScene) OnExit(args systems.SceneExitArgs) systems.SceneSnapshot {
	rm := s.ctx.ResourceManager
	rm.ReleaseMesh(meshCube)
	rm.ReleaseMaterial(materialCrate)
	if s.textureHeld {
		rm.ReleaseTexture(textureCrate)
	}

	snap := systems.NewSceneSnapshot(sceneWorld)
	snap.Data[snapshotKeyScore] = strconv.Itoa(s.score)
	if blob, err := s.serializer.SaveScene(sceneWorld); err == nil {
		snap.Data[snapshotKeyWorld] = string(blob)
	} else {
		core.LogWarn("world: state not captured: %v", err)
	}
	core.LogInfo("world: exiting (%s) with score %d", args.Reason, s.score)
	return snap
}

// stressScene preloads a deliberately oversized manifest to soak the
// async pipeline, spins the result for a while and hands back to the
// world scene. The snapshot it received on entry rides along in its
// own exit snapshot, so the world scene resumes untouched.
type stressScene struct {
	ctx    *systems.AppContext
	scenes *systems.SceneManager
	baton  map[string]string
	frames uint64
}

func newStressScene(scenes *systems.SceneManager) *stressScene {
	return &stressScene{scenes: scenes}
}

func (s *stressScene) OnAttach(ctx *systems.AppContext, _ *systems.ModuleRegistry) error {
	s.ctx = ctx
	return nil
}

func (s *stressScene) OnDetach(*systems.AppContext) {}

func (s *stressScene) BuildManifest() systems.SceneResourceManifest {
	var m systems.SceneResourceManifest
	for i := 0; i < stressMeshCount; i++ {
		m.AddRequired(systems.ResourceRequest{
			Identifier: stressMeshName(i),
			Kind:       resources.KindMesh,
			Source:     "meshes/cube.obj",
			Scope:      systems.ScopeScene,
		})
	}
	for i := 0; i < stressMeshCount/4; i++ {
		m.AddOptional(systems.ResourceRequest{
			Identifier: fmt.Sprintf("stress_texture_%03d", i),
			Kind:       resources.KindTexture,
			Source:     "textures/crate.png",
			Scope:      systems.ScopeScene,
		})
	}
	return m
}

func stressMeshName(i int) string {
	return fmt.Sprintf("stress_mesh_%03d", i)
}

func (s *stressScene) OnEnter(args systems.SceneEnterArgs) error {
	s.frames = 0
	s.baton = nil
	if snap := args.PreviousSnapshot; snap != nil {
		s.baton = snap.Data
	}

	rm := s.ctx.ResourceManager
	for i := 0; i < stressMeshCount; i++ {
		rm.AcquireMesh(stressMeshName(i))
	}
	s.spawnStressField()

	core.LogInfo("stress: entered with %d meshes resident", rm.Stats().MeshCount)
	return nil
}

func (s *stressScene) spawnStressField() {
	w := s.ctx.World
	w.Clear()
	for i := 0; i < stressMeshCount; i++ {
		id := w.CreateEntity()
		transform := world.NewTransformComponent()
		transform.Position = math.NewVec3(
			float32(i%stressGridStride)*1.5,
			0,
			float32(i/stressGridStride)*1.5,
		)
		w.SetComponent(id, world.ComponentTransform, transform)
		w.SetComponent(id, world.ComponentRenderable, world.RenderableComponent{
			Mesh:     stressMeshName(i),
			Material: materialCrate,
			Visible:  true,
		})
		w.SetComponent(id, world.ComponentSpin, world.SpinComponent{
			DegreesPerSecond: 90,
		})
	}
}

func (s *stressScene) OnUpdate(args *systems.FrameUpdateArgs) {
	s.frames++
	advanceSpin(s.ctx.World, args.DeltaTime)

	if s.frames >= stressSoakFrames {
		s.scenes.ReplaceScene(sceneWorld, systems.SceneEnterArgs{
			Props: map[string]string{"spawned_by": sceneStress},
		})
	}
}

func (s *stressScene) OnExit(systems.SceneExitArgs) systems.SceneSnapshot {
	rm := s.ctx.ResourceManager
	for i := 0; i < stressMeshCount; i++ {
		rm.ReleaseMesh(stressMeshName(i))
	}

	snap := systems.NewSceneSnapshot(sceneStress)
	for k, v := range s.baton {
		snap.Data[k] = v
	}
	return snap
}
