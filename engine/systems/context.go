package systems

import (
	"github.com/penumbra-engine/penumbra/engine/assets"
	"github.com/penumbra-engine/penumbra/engine/config"
	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/renderer"
	"github.com/penumbra-engine/penumbra/engine/world"
)

// AppContext bundles the engine services threaded through scenes and
// modules. It is built once by the application host; nothing in it is
// owned by the receivers.
type AppContext struct {
	EventBus        *core.EventBus
	Input           *core.Input
	Config          *config.ApplicationConfig
	Assets          *assets.AssetManager
	Renderer        renderer.Renderer
	ResourceManager *ResourceManager
	AsyncLoader     *AsyncResourceLoader
	ShaderCache     *ShaderCache
	World           *world.World
}

// FrameUpdateArgs carries per-frame timing to modules and scenes.
type FrameUpdateArgs struct {
	DeltaTime   float64
	TotalTime   float64
	FrameNumber uint64
}
