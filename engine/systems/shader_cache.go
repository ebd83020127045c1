package systems

import (
	"fmt"
	"sync"

	"github.com/penumbra-engine/penumbra/engine/assets"
	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// ShaderCache holds parsed shader configurations by name. Shaders are
// never loaded through the async pipeline; they arrive here through
// explicit registration or LoadFromFile during scene setup.
type ShaderCache struct {
	mutex   sync.RWMutex
	shaders map[string]*resources.ShaderConfig
}

func NewShaderCache() *ShaderCache {
	return &ShaderCache{
		shaders: make(map[string]*resources.ShaderConfig),
	}
}

// Register stores a config under its own name. Duplicates are rejected.
func (sc *ShaderCache) Register(cfg *resources.ShaderConfig) bool {
	if cfg == nil || cfg.Name == "" {
		core.LogError("shader cache: refusing to register nil or unnamed shader config")
		return false
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if _, exists := sc.shaders[cfg.Name]; exists {
		core.LogWarn("shader cache: shader '%s' already registered", cfg.Name)
		return false
	}
	sc.shaders[cfg.Name] = cfg
	return true
}

// LoadFromFile resolves and parses a .shadercfg through the asset
// manager and registers the result.
func (sc *ShaderCache) LoadFromFile(am *assets.AssetManager, name string) error {
	if am == nil {
		return fmt.Errorf("shader cache: no asset manager to load '%s' with", name)
	}
	path, ok := am.Resolve(name, resources.KindShader)
	if !ok {
		return fmt.Errorf("shader cache: no shader config found for '%s'", name)
	}
	asset, err := am.Load(path, resources.KindShader, nil)
	if err != nil {
		return err
	}
	cfg, ok := asset.Data.(*resources.ShaderConfig)
	if !ok {
		return fmt.Errorf("shader cache: asset '%s' is not a shader config", name)
	}
	if !sc.Register(cfg) {
		return fmt.Errorf("shader cache: shader '%s' already registered", cfg.Name)
	}
	return nil
}

func (sc *ShaderCache) HasShader(name string) bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	_, ok := sc.shaders[name]
	return ok
}

func (sc *ShaderCache) Get(name string) (*resources.ShaderConfig, bool) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	cfg, ok := sc.shaders[name]
	return cfg, ok
}

func (sc *ShaderCache) Remove(name string) bool {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if _, ok := sc.shaders[name]; !ok {
		return false
	}
	delete(sc.shaders, name)
	return true
}

func (sc *ShaderCache) Count() int {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return len(sc.shaders)
}
