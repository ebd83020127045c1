package assets

import "github.com/penumbra-engine/penumbra/engine/resources"

// Loader decodes one on-disk format into an engine payload. Loaders must
// be safe for concurrent Load calls: the async pipeline invokes them from
// worker goroutines.
type Loader interface {
	Load(path string, params interface{}) (*resources.Asset, error)
}
