package loaders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/penumbra-engine/penumbra/engine/resources"
)

// FontLoader handles both font flavours the engine understands: .fnt
// bitmap font descriptors and .fontcfg system font configs.
type FontLoader struct{}

func (fl *FontLoader) Load(path string, params interface{}) (*resources.Asset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fnt":
		return loadBitmapFont(path)
	case ".fontcfg":
		return loadSystemFont(path)
	default:
		return nil, fmt.Errorf("unsupported font file %s", path)
	}
}
