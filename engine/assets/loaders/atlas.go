package loaders

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// SpriteAtlasLoader parses .atlas files describing the named regions of
// a sprite sheet texture.
type SpriteAtlasLoader struct{}

func (al *SpriteAtlasLoader) Load(path string, params interface{}) (*resources.Asset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	atlas := &resources.SpriteAtlas{
		Regions: make(map[string]resources.SpriteRegion),
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitKeyValue(line)
		if !ok {
			core.LogWarn("atlas file %s: skipping invalid line: %s", path, line)
			continue
		}

		switch key {
		case "version":
		case "name":
			atlas.Name = value
		case "texture":
			atlas.TextureName = value
		case "region":
			region, err := parseSpriteRegion(value)
			if err != nil {
				return nil, fmt.Errorf("atlas file %s: %w", path, err)
			}
			if _, exists := atlas.Regions[region.Name]; exists {
				core.LogWarn("atlas file %s: duplicate region '%s', keeping last", path, region.Name)
			}
			atlas.Regions[region.Name] = region
		default:
			core.LogWarn("atlas file %s: unknown key '%s', skipping", path, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if atlas.Name == "" {
		atlas.Name = assetName(path)
	}
	if atlas.TextureName == "" {
		return nil, fmt.Errorf("atlas file %s: missing texture entry", path)
	}

	return &resources.Asset{
		Name:     atlas.Name,
		FullPath: path,
		DataSize: uint64(len(atlas.Regions)) * uint64(unsafe.Sizeof(resources.SpriteRegion{})),
		Data:     atlas,
	}, nil
}

// parseSpriteRegion parses "name,x,y,width,height".
func parseSpriteRegion(value string) (resources.SpriteRegion, error) {
	parts := splitList(value)
	if len(parts) != 5 {
		return resources.SpriteRegion{}, fmt.Errorf("region needs name,x,y,width,height: %s", value)
	}
	coords := make([]uint32, 4)
	for i, p := range parts[1:] {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return resources.SpriteRegion{}, fmt.Errorf("invalid region value %q", p)
		}
		coords[i] = uint32(n)
	}
	if coords[2] == 0 || coords[3] == 0 {
		return resources.SpriteRegion{}, fmt.Errorf("region '%s' has zero size", parts[0])
	}
	return resources.SpriteRegion{
		Name:   parts[0],
		X:      coords[0],
		Y:      coords[1],
		Width:  coords[2],
		Height: coords[3],
	}, nil
}
