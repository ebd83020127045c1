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

// ShaderConfigLoader parses .shadercfg files into a ShaderConfig.
type ShaderConfigLoader struct{}

var shaderStageNames = map[string]resources.ShaderStage{
	"vertex":   resources.ShaderStageVertex,
	"geometry": resources.ShaderStageGeometry,
	"fragment": resources.ShaderStageFragment,
	"compute":  resources.ShaderStageCompute,
}

type shaderAttributeInfo struct {
	attrType resources.ShaderAttributeType
	size     uint8
}

var shaderAttributeTypes = map[string]shaderAttributeInfo{
	"f32":  {resources.ShaderAttribTypeFloat32, 4},
	"vec2": {resources.ShaderAttribTypeFloat32_2, 8},
	"vec3": {resources.ShaderAttribTypeFloat32_3, 12},
	"vec4": {resources.ShaderAttribTypeFloat32_4, 16},
	"mat4": {resources.ShaderAttribTypeMatrix4, 64},
	"i32":  {resources.ShaderAttribTypeInt32, 4},
	"u32":  {resources.ShaderAttribTypeUint32, 4},
}

type shaderUniformInfo struct {
	uniformType resources.ShaderUniformType
	size        uint8
}

var shaderUniformTypes = map[string]shaderUniformInfo{
	"f32":     {resources.ShaderUniformTypeFloat32, 4},
	"vec2":    {resources.ShaderUniformTypeFloat32_2, 8},
	"vec3":    {resources.ShaderUniformTypeFloat32_3, 12},
	"vec4":    {resources.ShaderUniformTypeFloat32_4, 16},
	"i32":     {resources.ShaderUniformTypeInt32, 4},
	"mat4":    {resources.ShaderUniformTypeMatrix4, 64},
	"samp":    {resources.ShaderUniformTypeSampler, 0},
	"sampler": {resources.ShaderUniformTypeSampler, 0},
}

func (sl *ShaderConfigLoader) Load(path string, params interface{}) (*resources.Asset, error) {
	cfg, err := parseShaderConfig(path)
	if err != nil {
		return nil, err
	}
	return &resources.Asset{
		Name:     cfg.Name,
		FullPath: path,
		DataSize: uint64(unsafe.Sizeof(resources.ShaderConfig{})),
		Data:     cfg,
	}, nil
}

func parseShaderConfig(filename string) (*resources.ShaderConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := &resources.ShaderConfig{
		CullMode: resources.FaceCullModeBack,
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitKeyValue(line)
		if !ok {
			core.LogWarn("shader config %s: skipping invalid line: %s", filename, line)
			continue
		}

		switch key {
		case "version":
		case "name":
			cfg.Name = value
		case "renderpass":
			cfg.RenderpassName = value
		case "stages":
			for _, stageName := range splitList(value) {
				stage, ok := shaderStageNames[strings.ToLower(stageName)]
				if !ok {
					return nil, fmt.Errorf("shader config %s: unknown stage %q", filename, stageName)
				}
				cfg.Stages = append(cfg.Stages, stage)
				cfg.StageNames = append(cfg.StageNames, stageName)
			}
		case "stagefiles":
			cfg.StageFilenames = append(cfg.StageFilenames, splitList(value)...)
		case "cull_mode":
			switch strings.ToLower(value) {
			case "none":
				cfg.CullMode = resources.FaceCullModeNone
			case "front":
				cfg.CullMode = resources.FaceCullModeFront
			case "back":
				cfg.CullMode = resources.FaceCullModeBack
			case "front_and_back":
				cfg.CullMode = resources.FaceCullModeFrontAndBack
			default:
				return nil, fmt.Errorf("shader config %s: unknown cull_mode %q", filename, value)
			}
		case "attribute":
			parts := splitList(value)
			if len(parts) != 2 {
				return nil, fmt.Errorf("shader config %s: attribute needs type,name: %s", filename, line)
			}
			info, ok := shaderAttributeTypes[strings.ToLower(parts[0])]
			if !ok {
				return nil, fmt.Errorf("shader config %s: unknown attribute type %q", filename, parts[0])
			}
			cfg.Attributes = append(cfg.Attributes, resources.ShaderAttributeConfig{
				Name: parts[1],
				Type: info.attrType,
				Size: info.size,
			})
		case "uniform":
			parts := splitList(value)
			if len(parts) != 3 {
				return nil, fmt.Errorf("shader config %s: uniform needs type,scope,name: %s", filename, line)
			}
			info, ok := shaderUniformTypes[strings.ToLower(parts[0])]
			if !ok {
				return nil, fmt.Errorf("shader config %s: unknown uniform type %q", filename, parts[0])
			}
			scope, err := parseShaderScope(parts[1])
			if err != nil {
				return nil, fmt.Errorf("shader config %s: %w", filename, err)
			}
			cfg.Uniforms = append(cfg.Uniforms, resources.ShaderUniformConfig{
				Name:  parts[2],
				Type:  info.uniformType,
				Size:  info.size,
				Scope: scope,
			})
		default:
			core.LogWarn("shader config %s: unknown key '%s', skipping", filename, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if cfg.Name == "" {
		return nil, fmt.Errorf("shader config %s: missing name", filename)
	}
	if len(cfg.Stages) == 0 {
		return nil, fmt.Errorf("shader config %s: missing stages", filename)
	}
	if len(cfg.Stages) != len(cfg.StageFilenames) {
		return nil, fmt.Errorf("shader config %s: %d stages but %d stage files",
			filename, len(cfg.Stages), len(cfg.StageFilenames))
	}
	return cfg, nil
}

func parseShaderScope(value string) (resources.ShaderScope, error) {
	switch strings.ToLower(value) {
	case "0", "global":
		return resources.ShaderScopeGlobal, nil
	case "1", "instance":
		return resources.ShaderScopeInstance, nil
	case "2", "local":
		return resources.ShaderScopeLocal, nil
	}
	return 0, fmt.Errorf("unknown uniform scope %q", value)
}
