package loaders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// loadSystemFont parses a .fontcfg file pointing at a TTF/OTF file and
// loads the font collection it names. The parsed collection is kept in
// InternalData for on-demand rasterization.
func loadSystemFont(path string) (*resources.Asset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var (
		faceName string
		fontFile string
		size     = 20
	)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		switch key {
		case "version":
		case "face":
			faceName = value
		case "file":
			fontFile = value
		case "size":
			s, err := strconv.Atoi(value)
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("font config %s: invalid size %q", path, value)
			}
			size = s
		default:
			core.LogWarn("font config %s: unknown key '%s', skipping", path, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if fontFile == "" {
		return nil, fmt.Errorf("font config %s: missing file entry", path)
	}

	// Font file paths are relative to the config that names them.
	fullPath := fontFile
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(filepath.Dir(path), fontFile)
	}
	fontBytes, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	coll, err := opentype.ParseCollection(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", fullPath, err)
	}
	face, err := coll.Font(0)
	if err != nil {
		return nil, fmt.Errorf("font %s has no usable face: %w", fullPath, err)
	}

	var buf sfnt.Buffer
	if faceName == "" {
		if family, err := face.Name(&buf, sfnt.NameIDFamily); err == nil {
			faceName = family
		} else {
			faceName = assetName(fullPath)
		}
	}

	out := &resources.Font{
		Name:         assetName(path),
		Type:         resources.FontTypeSystem,
		Face:         faceName,
		Size:         uint32(size),
		InternalData: coll,
	}
	if metrics, err := face.Metrics(&buf, fixed.I(size), font.HintingNone); err == nil {
		out.LineHeight = int32(metrics.Height.Ceil())
		out.Baseline = int32(metrics.Ascent.Ceil())
	}

	return &resources.Asset{
		Name:     out.Name,
		FullPath: path,
		DataSize: uint64(len(fontBytes)),
		Data:     out,
	}, nil
}
