package loaders

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unsafe"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// ModelLoader parses .model manifests composing meshes and materials by
// name. Models carry no pixel or vertex payload of their own, so no GPU
// upload happens for them.
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, params interface{}) (*resources.Asset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data := &resources.ModelData{}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitKeyValue(line)
		if !ok {
			core.LogWarn("model file %s: skipping invalid line: %s", path, line)
			continue
		}

		switch key {
		case "version":
		case "name":
			data.Name = value
		case "mesh":
			data.MeshNames = append(data.MeshNames, value)
		case "material":
			data.MaterialNames = append(data.MaterialNames, value)
		default:
			core.LogWarn("model file %s: unknown key '%s', skipping", path, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if data.Name == "" {
		data.Name = assetName(path)
	}
	if len(data.MeshNames) == 0 {
		return nil, fmt.Errorf("model file %s names no meshes", path)
	}

	return &resources.Asset{
		Name:     data.Name,
		FullPath: path,
		DataSize: uint64(unsafe.Sizeof(resources.ModelData{})),
		Data:     data,
	}, nil
}
