package world

import "github.com/penumbra-engine/penumbra/engine/math"

// Well-known component names shared by gameplay code and persisted state.
const (
	ComponentTransform  = "transform"
	ComponentRenderable = "renderable"
	ComponentLabel      = "label"
	ComponentSpin       = "spin"
)

// TransformComponent places an entity in the world.
type TransformComponent struct {
	Position math.Vec3 `json:"position"`
	Rotation math.Vec3 `json:"rotation"`
	Scale    math.Vec3 `json:"scale"`
}

func NewTransformComponent() TransformComponent {
	return TransformComponent{Scale: math.NewVec3One()}
}

// RenderableComponent ties an entity to registry resources by name.
type RenderableComponent struct {
	Mesh     string `json:"mesh"`
	Material string `json:"material"`
	Visible  bool   `json:"visible"`
}

// LabelComponent is a free-form tag, handy in tests and debug output.
type LabelComponent struct {
	Text string `json:"text"`
}

// SpinComponent rotates an entity around Y at a fixed rate, used by the
// testbed scenes.
type SpinComponent struct {
	DegreesPerSecond float32 `json:"degrees_per_second"`
}
