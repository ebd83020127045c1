package systems

import (
	"sync"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

type resourceEntry[T any] struct {
	handle T
	// refCount counts explicit Acquire calls. Zero means only the
	// registry holds the resource.
	refCount uint32
	// idleFrames counts consecutive BeginFrame observations at
	// refCount zero. Any acquire resets it.
	idleFrames uint64
}

type registry[T any] struct {
	entries map[string]*resourceEntry[T]
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{entries: make(map[string]*resourceEntry[T])}
}

func (r *registry[T]) register(name string, handle T) bool {
	if _, exists := r.entries[name]; exists {
		return false
	}
	r.entries[name] = &resourceEntry[T]{handle: handle}
	return true
}

func (r *registry[T]) get(name string) (T, bool) {
	if e, ok := r.entries[name]; ok {
		return e.handle, true
	}
	var zero T
	return zero, false
}

func (r *registry[T]) has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

func (r *registry[T]) acquire(name string) (T, bool) {
	if e, ok := r.entries[name]; ok {
		e.refCount++
		e.idleFrames = 0
		return e.handle, true
	}
	var zero T
	return zero, false
}

func (r *registry[T]) release(name string) {
	if e, ok := r.entries[name]; ok && e.refCount > 0 {
		e.refCount--
	}
}

func (r *registry[T]) remove(name string) bool {
	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	return true
}

func (r *registry[T]) beginFrame() {
	for _, e := range r.entries {
		if e.refCount == 0 {
			e.idleFrames++
		} else {
			e.idleFrames = 0
		}
	}
}

func (r *registry[T]) sweep(unusedFrames uint64) []string {
	var removed []string
	for name, e := range r.entries {
		if e.refCount == 0 && e.idleFrames >= unusedFrames {
			delete(r.entries, name)
			removed = append(removed, name)
		}
	}
	return removed
}

func (r *registry[T]) count() int {
	return len(r.entries)
}

// ResourceStats is a point-in-time census of the registries.
type ResourceStats struct {
	MeshCount        int
	TextureCount     int
	MaterialCount    int
	ModelCount       int
	SpriteAtlasCount int
	FontCount        int
	FrameNumber      uint64
}

func (s ResourceStats) Total() int {
	return s.MeshCount + s.TextureCount + s.MaterialCount +
		s.ModelCount + s.SpriteAtlasCount + s.FontCount
}

// ResourceManager is the shared, named registry of loaded resources.
// One mutex guards every map: the main thread and the async loader's
// completion callbacks both register and query here.
type ResourceManager struct {
	mutex sync.Mutex

	meshes    *registry[*resources.Mesh]
	textures  *registry[*resources.Texture]
	materials *registry[*resources.Material]
	models    *registry[*resources.Model]
	atlases   *registry[*resources.SpriteAtlas]
	fonts     *registry[*resources.Font]

	frameNumber uint64
}

func NewResourceManager() *ResourceManager {
	return &ResourceManager{
		meshes:    newRegistry[*resources.Mesh](),
		textures:  newRegistry[*resources.Texture](),
		materials: newRegistry[*resources.Material](),
		models:    newRegistry[*resources.Model](),
		atlases:   newRegistry[*resources.SpriteAtlas](),
		fonts:     newRegistry[*resources.Font](),
	}
}

// BeginFrame advances the cleanup frame counter. Call once per frame
// from the main thread before CleanupUnused may run.
func (rm *ResourceManager) BeginFrame() {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.frameNumber++
	rm.meshes.beginFrame()
	rm.textures.beginFrame()
	rm.materials.beginFrame()
	rm.models.beginFrame()
	rm.atlases.beginFrame()
	rm.fonts.beginFrame()
}

// CleanupUnused removes every resource that sat at refcount zero for at
// least unusedFrames consecutive BeginFrame calls and returns how many
// were removed. An acquire at any point restarts a resource's idle
// count, so briefly unreferenced resources survive.
func (rm *ResourceManager) CleanupUnused(unusedFrames uint64) int {
	if unusedFrames == 0 {
		unusedFrames = 1
	}
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	removed := 0
	for _, name := range rm.meshes.sweep(unusedFrames) {
		core.LogDebug("resource sweep: mesh '%s' removed", name)
		removed++
	}
	for _, name := range rm.textures.sweep(unusedFrames) {
		core.LogDebug("resource sweep: texture '%s' removed", name)
		removed++
	}
	for _, name := range rm.materials.sweep(unusedFrames) {
		core.LogDebug("resource sweep: material '%s' removed", name)
		removed++
	}
	for _, name := range rm.models.sweep(unusedFrames) {
		core.LogDebug("resource sweep: model '%s' removed", name)
		removed++
	}
	for _, name := range rm.atlases.sweep(unusedFrames) {
		core.LogDebug("resource sweep: sprite atlas '%s' removed", name)
		removed++
	}
	for _, name := range rm.fonts.sweep(unusedFrames) {
		core.LogDebug("resource sweep: font '%s' removed", name)
		removed++
	}
	return removed
}

// Stats returns a snapshot of the registry sizes.
func (rm *ResourceManager) Stats() ResourceStats {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return ResourceStats{
		MeshCount:        rm.meshes.count(),
		TextureCount:     rm.textures.count(),
		MaterialCount:    rm.materials.count(),
		ModelCount:       rm.models.count(),
		SpriteAtlasCount: rm.atlases.count(),
		FontCount:        rm.fonts.count(),
		FrameNumber:      rm.frameNumber,
	}
}

func (rm *ResourceManager) RegisterMesh(name string, mesh *resources.Mesh) bool {
	if name == "" || mesh == nil {
		core.LogError("resource manager: refusing to register mesh with empty name or nil handle")
		return false
	}
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if !rm.meshes.register(name, mesh) {
		core.LogWarn("resource manager: mesh '%s' already registered", name)
		return false
	}
	return true
}

func (rm *ResourceManager) HasMesh(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.meshes.has(name)
}

func (rm *ResourceManager) GetMesh(name string) (*resources.Mesh, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.meshes.get(name)
}

func (rm *ResourceManager) AcquireMesh(name string) (*resources.Mesh, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.meshes.acquire(name)
}

func (rm *ResourceManager) ReleaseMesh(name string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.meshes.release(name)
}

func (rm *ResourceManager) RemoveMesh(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.meshes.remove(name)
}

func (rm *ResourceManager) RegisterTexture(name string, texture *resources.Texture) bool {
	if name == "" || texture == nil {
		core.LogError("resource manager: refusing to register texture with empty name or nil handle")
		return false
	}
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if !rm.textures.register(name, texture) {
		core.LogWarn("resource manager: texture '%s' already registered", name)
		return false
	}
	return true
}

func (rm *ResourceManager) HasTexture(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.textures.has(name)
}

func (rm *ResourceManager) GetTexture(name string) (*resources.Texture, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.textures.get(name)
}

func (rm *ResourceManager) AcquireTexture(name string) (*resources.Texture, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.textures.acquire(name)
}

func (rm *ResourceManager) ReleaseTexture(name string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.textures.release(name)
}

func (rm *ResourceManager) RemoveTexture(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.textures.remove(name)
}

func (rm *ResourceManager) RegisterMaterial(name string, material *resources.Material) bool {
	if name == "" || material == nil {
		core.LogError("resource manager: refusing to register material with empty name or nil handle")
		return false
	}
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if !rm.materials.register(name, material) {
		core.LogWarn("resource manager: material '%s' already registered", name)
		return false
	}
	return true
}

func (rm *ResourceManager) HasMaterial(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.materials.has(name)
}

func (rm *ResourceManager) GetMaterial(name string) (*resources.Material, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.materials.get(name)
}

func (rm *ResourceManager) AcquireMaterial(name string) (*resources.Material, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.materials.acquire(name)
}

func (rm *ResourceManager) ReleaseMaterial(name string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.materials.release(name)
}

func (rm *ResourceManager) RemoveMaterial(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.materials.remove(name)
}

func (rm *ResourceManager) RegisterModel(name string, model *resources.Model) bool {
	if name == "" || model == nil {
		core.LogError("resource manager: refusing to register model with empty name or nil handle")
		return false
	}
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if !rm.models.register(name, model) {
		core.LogWarn("resource manager: model '%s' already registered", name)
		return false
	}
	return true
}

func (rm *ResourceManager) HasModel(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.models.has(name)
}

func (rm *ResourceManager) GetModel(name string) (*resources.Model, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.models.get(name)
}

func (rm *ResourceManager) AcquireModel(name string) (*resources.Model, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.models.acquire(name)
}

func (rm *ResourceManager) ReleaseModel(name string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.models.release(name)
}

func (rm *ResourceManager) RemoveModel(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.models.remove(name)
}

func (rm *ResourceManager) RegisterSpriteAtlas(name string, atlas *resources.SpriteAtlas) bool {
	if name == "" || atlas == nil {
		core.LogError("resource manager: refusing to register sprite atlas with empty name or nil handle")
		return false
	}
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if !rm.atlases.register(name, atlas) {
		core.LogWarn("resource manager: sprite atlas '%s' already registered", name)
		return false
	}
	return true
}

func (rm *ResourceManager) HasSpriteAtlas(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.atlases.has(name)
}

func (rm *ResourceManager) GetSpriteAtlas(name string) (*resources.SpriteAtlas, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.atlases.get(name)
}

func (rm *ResourceManager) AcquireSpriteAtlas(name string) (*resources.SpriteAtlas, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.atlases.acquire(name)
}

func (rm *ResourceManager) ReleaseSpriteAtlas(name string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.atlases.release(name)
}

func (rm *ResourceManager) RemoveSpriteAtlas(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.atlases.remove(name)
}

func (rm *ResourceManager) RegisterFont(name string, font *resources.Font) bool {
	if name == "" || font == nil {
		core.LogError("resource manager: refusing to register font with empty name or nil handle")
		return false
	}
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if !rm.fonts.register(name, font) {
		core.LogWarn("resource manager: font '%s' already registered", name)
		return false
	}
	return true
}

func (rm *ResourceManager) HasFont(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.fonts.has(name)
}

func (rm *ResourceManager) GetFont(name string) (*resources.Font, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.fonts.get(name)
}

func (rm *ResourceManager) AcquireFont(name string) (*resources.Font, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.fonts.acquire(name)
}

func (rm *ResourceManager) ReleaseFont(name string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.fonts.release(name)
}

func (rm *ResourceManager) RemoveFont(name string) bool {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.fonts.remove(name)
}

// removeByKind routes a scoped release to the right registry. Used by
// the scene manager when detaching a scene.
func (rm *ResourceManager) removeByKind(kind resources.Kind, name string) bool {
	switch kind {
	case resources.KindMesh:
		return rm.RemoveMesh(name)
	case resources.KindTexture:
		return rm.RemoveTexture(name)
	case resources.KindMaterial:
		return rm.RemoveMaterial(name)
	case resources.KindModel:
		return rm.RemoveModel(name)
	case resources.KindSpriteAtlas:
		return rm.RemoveSpriteAtlas(name)
	case resources.KindFont:
		return rm.RemoveFont(name)
	}
	return false
}
