package renderer

import (
	"github.com/penumbra-engine/penumbra/engine/math"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// RenderMesh is one mesh instance inside a frame packet.
type RenderMesh struct {
	GPUID        uint32
	Model        math.Mat4
	MaterialName string
}

// RenderPacket is everything the renderer consumes for one frame.
type RenderPacket struct {
	DeltaTime  float64
	View       math.Mat4
	Projection math.Mat4
	Meshes     []RenderMesh
}

// Renderer is the boundary to the render backend. The engine core only
// creates and destroys GPU objects and hands over one packet per frame;
// everything else belongs behind this interface. All methods must be
// called from the main thread.
type Renderer interface {
	Initialize(appName string, width, height uint32) error
	Shutdown() error
	Resized(width, height uint32) error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error
	DrawFrame(packet *RenderPacket) error

	// CreateTexture uploads decoded pixels and returns the GPU id.
	CreateTexture(image *resources.ImageData) (uint32, error)
	DestroyTexture(gpuID uint32)

	// CreateMesh uploads parsed geometry and returns the GPU id.
	CreateMesh(mesh *resources.MeshData) (uint32, error)
	DestroyMesh(gpuID uint32)
}
