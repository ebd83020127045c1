package loaders

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/math"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// MaterialLoader parses .pmt material definition files.
type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, params interface{}) (*resources.Asset, error) {
	cfg, err := parsePMTFile(path)
	if err != nil {
		return nil, err
	}
	return &resources.Asset{
		Name:     cfg.Name,
		FullPath: path,
		DataSize: uint64(unsafe.Sizeof(resources.MaterialConfig{})),
		Data:     cfg,
	}, nil
}

func parsePMTFile(filename string) (*resources.MaterialConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	cfg := &resources.MaterialConfig{
		DiffuseColour: math.NewVec4One(),
		Shininess:     32.0,
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		key, value, ok := splitKeyValue(line)
		if !ok {
			core.LogWarn("material file %s: skipping invalid line: %s", filename, line)
			continue
		}

		switch key {
		case "version":
			// Currently a single version exists.
		case "name":
			cfg.Name = value
		case "shader":
			cfg.ShaderName = value
		case "diffuse_colour":
			colourValues := strings.Fields(value)
			if len(colourValues) != 4 {
				return nil, fmt.Errorf("invalid diffuse_colour, expected 4 values: %s", line)
			}
			for i, v := range colourValues {
				f, err := strconv.ParseFloat(v, 32)
				if err != nil {
					return nil, fmt.Errorf("invalid diffuse_colour value: %s", v)
				}
				switch i {
				case 0:
					cfg.DiffuseColour.X = float32(f)
				case 1:
					cfg.DiffuseColour.Y = float32(f)
				case 2:
					cfg.DiffuseColour.Z = float32(f)
				case 3:
					cfg.DiffuseColour.W = float32(f)
				}
			}
		case "shininess":
			shininess, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid shininess value: %s", value)
			}
			cfg.Shininess = float32(shininess)
		case "diffuse_map_name":
			cfg.DiffuseMapName = value
		case "specular_map_name":
			cfg.SpecularMapName = value
		case "normal_map_name":
			cfg.NormalMapName = value
		case "autorelease":
			autoRelease, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid autorelease value: %s", value)
			}
			cfg.AutoRelease = autoRelease
		default:
			core.LogWarn("material file %s: unknown key '%s', skipping", filename, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = assetName(filename)
	}
	if err := validateMaterial(cfg); err != nil {
		return nil, fmt.Errorf("material file %s: %w", filename, err)
	}
	return cfg, nil
}

func validateMaterial(cfg *resources.MaterialConfig) error {
	if cfg.ShaderName == "" {
		return fmt.Errorf("shader name is required")
	}
	if !isUnitVec4(cfg.DiffuseColour) {
		return fmt.Errorf("diffuse_colour values must be between 0.0 and 1.0")
	}
	if cfg.Shininess < 0 {
		return fmt.Errorf("shininess must be a non-negative value")
	}
	return nil
}

func isUnitVec4(v math.Vec4) bool {
	return inRange(v.X) && inRange(v.Y) && inRange(v.Z) && inRange(v.W)
}

func inRange(value float32) bool {
	return value >= 0.0 && value <= 1.0
}
