package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/penumbra-engine/penumbra/engine/assets/loaders"
	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// AssetChangedEvent is published when a watched asset file is created or
// modified on disk.
type AssetChangedEvent struct {
	Path string
	Kind resources.Kind
}

// AssetRemovedEvent is published when a watched asset file disappears.
type AssetRemovedEvent struct {
	Path string
}

type AssetInfo struct {
	Path     string
	Kind     resources.Kind
	LastSeen time.Time
}

// AssetManager indexes the asset root, watches it for changes and
// dispatches file loads to the registered format loaders. The index and
// loader registry are guarded so worker goroutines may resolve and load
// concurrently with the watcher.
type AssetManager struct {
	bus  *core.EventBus
	root string

	mutex   sync.RWMutex
	assets  map[string]AssetInfo
	loaders map[resources.Kind]Loader

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	closed   bool
}

func NewAssetManager(bus *core.EventBus) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		bus:      bus,
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[resources.Kind]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

// Initialize registers the default loaders, indexes the asset root and
// starts the change watcher. A missing root disables watching but is not
// an error, so asset-free configurations still come up.
func (am *AssetManager) Initialize(root string) error {
	am.root = filepath.Clean(root)

	am.RegisterLoader(resources.KindTexture, &loaders.ImageLoader{})
	am.RegisterLoader(resources.KindMesh, &loaders.ObjLoader{})
	am.RegisterLoader(resources.KindMaterial, &loaders.MaterialLoader{})
	am.RegisterLoader(resources.KindModel, &loaders.ModelLoader{})
	am.RegisterLoader(resources.KindSpriteAtlas, &loaders.SpriteAtlasLoader{})
	am.RegisterLoader(resources.KindFont, &loaders.FontLoader{})
	am.RegisterLoader(resources.KindShader, &loaders.ShaderConfigLoader{})

	if _, err := os.Stat(am.root); err != nil {
		core.LogWarn("asset root %s not found, hot reload disabled", am.root)
		return nil
	}

	if err := am.watchRecursive(am.root); err != nil {
		return err
	}
	go am.watchLoop()

	return nil
}

// RegisterLoader installs (or replaces) the loader for one kind.
func (am *AssetManager) RegisterLoader(kind resources.Kind, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[kind] = loader
}

// Resolve maps a logical name and kind to an indexed on-disk path. Names
// that already are paths under the root (or absolute) resolve directly.
func (am *AssetManager) Resolve(name string, kind resources.Kind) (string, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	if info, ok := am.assets[filepath.Clean(name)]; ok && (kind == resources.KindNone || info.Kind == kind) {
		return info.Path, true
	}

	for path, info := range am.assets {
		if kind != resources.KindNone && info.Kind != kind {
			continue
		}
		base := filepath.Base(path)
		if base == name || strings.TrimSuffix(base, filepath.Ext(base)) == name {
			return path, true
		}
	}

	if _, err := os.Stat(name); err == nil {
		return name, true
	}
	return "", false
}

// Load decodes the file at path with the loader registered for kind.
func (am *AssetManager) Load(path string, kind resources.Kind, params interface{}) (*resources.Asset, error) {
	am.mutex.RLock()
	loader, ok := am.loaders[kind]
	am.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no loader registered for asset kind %q", kind)
	}

	asset, err := loader.Load(path, params)
	if err != nil {
		return nil, err
	}
	asset.Kind = kind
	if asset.FullPath == "" {
		asset.FullPath = path
	}
	return asset, nil
}

// AssetCount reports the size of the index.
func (am *AssetManager) AssetCount() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Index returns a snapshot of the indexed assets.
func (am *AssetManager) Index() []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, info := range am.assets {
		out = append(out, info)
	}
	return out
}

// Close stops the watcher. Safe to call more than once.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.closed {
		am.mutex.Unlock()
		return nil
	}
	am.closed = true
	am.mutex.Unlock()

	close(am.done)
	return am.fsnotify.Close()
}

func (am *AssetManager) watchLoop() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err.Error())

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	path := filepath.Clean(e.Name)

	if s, err := os.Stat(path); err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(path); err != nil {
				core.LogError("watch new directory %s: %s", path, err.Error())
			}
		}
		return
	}

	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		kind := determineAssetKind(path)
		if kind == resources.KindNone {
			return
		}
		am.indexAsset(path, kind)
		core.Publish(am.bus, AssetChangedEvent{Path: path, Kind: kind})
	}

	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(path)
		core.Publish(am.bus, AssetRemovedEvent{Path: path})
	}
}

// watchRecursive walks path, watching every directory and indexing every
// recognized file.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		if kind := determineAssetKind(walkPath); kind != resources.KindNone {
			am.indexAsset(filepath.Clean(walkPath), kind)
		}
		return nil
	})
}

func (am *AssetManager) indexAsset(path string, kind resources.Kind) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path:     path,
		Kind:     kind,
		LastSeen: time.Now(),
	}
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
}

func determineAssetKind(path string) resources.Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp":
		return resources.KindTexture
	case ".obj":
		return resources.KindMesh
	case ".pmt":
		return resources.KindMaterial
	case ".model":
		return resources.KindModel
	case ".atlas":
		return resources.KindSpriteAtlas
	case ".fnt", ".fontcfg":
		return resources.KindFont
	case ".shadercfg":
		return resources.KindShader
	default:
		return resources.KindNone
	}
}
