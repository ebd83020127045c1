package testbed

import (
	"fmt"

	"github.com/penumbra-engine/penumbra/engine"
	"github.com/penumbra-engine/penumbra/engine/config"
	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/systems"
)

// Scene ids the demo registers on its host.
const (
	sceneBoot   = "boot"
	sceneWorld  = "world"
	sceneStress = "stress"
)

// Resource names shared across the demo scenes.
const (
	meshCube      = "cube"
	materialCrate = "crate"
	textureCrate  = "crate"
	modelRock     = "rock"
	shaderWorld   = "world"
)

// Game is the demo application: an ApplicationHost wired with the
// boot, world and stress scenes plus a stats module. Left running it
// cycles world and stress forever, which makes it double as a soak
// test for the preload pipeline and the resource sweep.
type Game struct {
	host *engine.ApplicationHost
}

// NewGame builds the host and registers the demo scenes and modules.
// Initialize still has to run before the game can.
func NewGame(cfg config.ApplicationConfig) (*Game, error) {
	host, err := engine.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("testbed: %w", err)
	}

	scenes := host.Scenes()
	scenes.RegisterSceneFactory(sceneBoot, func() systems.Scene { return newBootScene(scenes) })
	scenes.RegisterSceneFactory(sceneWorld, func() systems.Scene { return newWorldScene(scenes) })
	scenes.RegisterSceneFactory(sceneStress, func() systems.Scene { return newStressScene(scenes) })

	if !host.Modules().Register(newStatsModule(host.Metrics(), statsReportInterval)) {
		return nil, fmt.Errorf("testbed: stats module was rejected")
	}

	return &Game{host: host}, nil
}

// Initialize brings the host up and queues the boot scene.
func (g *Game) Initialize() error {
	if err := g.host.Initialize(); err != nil {
		return err
	}
	if !g.host.Scenes().PushScene(sceneBoot, systems.SceneEnterArgs{}) {
		return fmt.Errorf("testbed: boot scene was rejected")
	}
	core.LogInfo("testbed: ready, booting into '%s'", sceneBoot)
	return nil
}

// Run blocks until the host stops.
func (g *Game) Run() error {
	return g.host.Run()
}

// RequestStop is safe from any goroutine, typically a signal handler.
func (g *Game) RequestStop() {
	g.host.RequestStop()
}

func (g *Game) Shutdown() error {
	return g.host.Shutdown()
}

// Host exposes the underlying application host, mainly for tests.
func (g *Game) Host() *engine.ApplicationHost {
	return g.host
}
