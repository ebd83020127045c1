package renderer

import (
	"fmt"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// HeadlessStats is a snapshot of what the headless backend has seen.
type HeadlessStats struct {
	TexturesCreated int
	TexturesLive    int
	MeshesCreated   int
	MeshesLive      int
	FramesDrawn     uint64
	MeshesLastFrame int
}

// HeadlessRenderer implements Renderer without a GPU. It validates its
// inputs, hands out ids and counts calls. The demo's headless mode, CI
// and the test suite run against it.
type HeadlessRenderer struct {
	appName string
	width   uint32
	height  uint32

	nextID       uint32
	liveTextures map[uint32]struct{}
	liveMeshes   map[uint32]struct{}

	texturesCreated int
	meshesCreated   int
	framesDrawn     uint64
	meshesLastFrame int
	frameOpen       bool
}

func NewHeadless() *HeadlessRenderer {
	return &HeadlessRenderer{
		liveTextures: make(map[uint32]struct{}),
		liveMeshes:   make(map[uint32]struct{}),
	}
}

func (h *HeadlessRenderer) Initialize(appName string, width, height uint32) error {
	h.appName = appName
	h.width = width
	h.height = height
	core.LogInfo("headless renderer up for %s (%dx%d)", appName, width, height)
	return nil
}

func (h *HeadlessRenderer) Shutdown() error {
	if len(h.liveTextures) > 0 || len(h.liveMeshes) > 0 {
		core.LogWarn("headless renderer shutting down with %d textures and %d meshes still live",
			len(h.liveTextures), len(h.liveMeshes))
	}
	return nil
}

func (h *HeadlessRenderer) Resized(width, height uint32) error {
	h.width = width
	h.height = height
	return nil
}

func (h *HeadlessRenderer) BeginFrame(deltaTime float64) error {
	h.frameOpen = true
	return nil
}

func (h *HeadlessRenderer) EndFrame(deltaTime float64) error {
	if !h.frameOpen {
		return fmt.Errorf("EndFrame without BeginFrame")
	}
	h.frameOpen = false
	h.framesDrawn++
	return nil
}

func (h *HeadlessRenderer) DrawFrame(packet *RenderPacket) error {
	if !h.frameOpen {
		return fmt.Errorf("DrawFrame outside BeginFrame/EndFrame")
	}
	if packet == nil {
		return fmt.Errorf("nil render packet")
	}
	h.meshesLastFrame = len(packet.Meshes)
	return nil
}

func (h *HeadlessRenderer) CreateTexture(image *resources.ImageData) (uint32, error) {
	if image == nil || len(image.Pixels) == 0 {
		return resources.InvalidGPUID, fmt.Errorf("texture upload with no pixel data")
	}
	if expected := int(image.Width) * int(image.Height) * 4; len(image.Pixels) != expected {
		return resources.InvalidGPUID, fmt.Errorf("texture pixel data is %d bytes, want %d for %dx%d RGBA",
			len(image.Pixels), expected, image.Width, image.Height)
	}
	h.nextID++
	h.liveTextures[h.nextID] = struct{}{}
	h.texturesCreated++
	return h.nextID, nil
}

func (h *HeadlessRenderer) DestroyTexture(gpuID uint32) {
	if _, ok := h.liveTextures[gpuID]; !ok {
		core.LogWarn("destroy of unknown texture gpu id %d", gpuID)
		return
	}
	delete(h.liveTextures, gpuID)
}

func (h *HeadlessRenderer) CreateMesh(mesh *resources.MeshData) (uint32, error) {
	if mesh == nil || len(mesh.Vertices) == 0 {
		return resources.InvalidGPUID, fmt.Errorf("mesh upload with no vertices")
	}
	if len(mesh.Indices)%3 != 0 {
		return resources.InvalidGPUID, fmt.Errorf("mesh %s index count %d is not a multiple of 3",
			mesh.Name, len(mesh.Indices))
	}
	h.nextID++
	h.liveMeshes[h.nextID] = struct{}{}
	h.meshesCreated++
	return h.nextID, nil
}

func (h *HeadlessRenderer) DestroyMesh(gpuID uint32) {
	if _, ok := h.liveMeshes[gpuID]; !ok {
		core.LogWarn("destroy of unknown mesh gpu id %d", gpuID)
		return
	}
	delete(h.liveMeshes, gpuID)
}

// Stats reports created/live object counts for tests and debug overlays.
func (h *HeadlessRenderer) Stats() HeadlessStats {
	return HeadlessStats{
		TexturesCreated: h.texturesCreated,
		TexturesLive:    len(h.liveTextures),
		MeshesCreated:   h.meshesCreated,
		MeshesLive:      len(h.liveMeshes),
		FramesDrawn:     h.framesDrawn,
		MeshesLastFrame: h.meshesLastFrame,
	}
}
