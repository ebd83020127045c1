package systems

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/world"
)

const sceneFileVersion = 1

type serializedEntity struct {
	ID         uint64                     `json:"id"`
	Components map[string]json.RawMessage `json:"components"`
}

type sceneFile struct {
	Version  int                `json:"version"`
	SceneID  string             `json:"sceneId"`
	SavedAt  string             `json:"savedAt"`
	Entities []serializedEntity `json:"entities"`
}

// SceneSerializer round-trips the world's entities and components as
// JSON. Well-known components decode back to their concrete types;
// anything else survives as generic decoded JSON.
type SceneSerializer struct {
	ctx *AppContext
}

func NewSceneSerializer(ctx *AppContext) *SceneSerializer {
	return &SceneSerializer{ctx: ctx}
}

func (s *SceneSerializer) world() *world.World {
	if s.ctx == nil {
		return nil
	}
	return s.ctx.World
}

// SaveScene captures every live entity into a JSON document. Entities
// appear in ascending ID order so saved files diff cleanly.
func (s *SceneSerializer) SaveScene(sceneID string) ([]byte, error) {
	w := s.world()
	if w == nil {
		return nil, fmt.Errorf("scene serializer: no world to save")
	}

	var ids []world.EntityID
	w.EachEntity(func(id world.EntityID) bool {
		ids = append(ids, id)
		return true
	})
	slices.Sort(ids)

	file := sceneFile{
		Version:  sceneFileVersion,
		SceneID:  sceneID,
		SavedAt:  time.Now().UTC().Format(time.RFC3339),
		Entities: make([]serializedEntity, 0, len(ids)),
	}

	for _, id := range ids {
		entity := serializedEntity{
			ID:         uint64(id),
			Components: make(map[string]json.RawMessage),
		}
		for name, value := range w.Components(id) {
			raw, err := json.Marshal(value)
			if err != nil {
				core.LogWarn("scene serializer: skipping component '%s' on entity %d: %v", name, id, err)
				continue
			}
			entity.Components[name] = raw
		}
		file.Entities = append(file.Entities, entity)
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("scene serializer: encode '%s': %w", sceneID, err)
	}
	return data, nil
}

// SaveSceneToFile writes the serialized scene to path.
func (s *SceneSerializer) SaveSceneToFile(sceneID, path string) bool {
	data, err := s.SaveScene(sceneID)
	if err != nil {
		core.LogError("%v", err)
		return false
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		core.LogError("scene serializer: write '%s': %v", path, err)
		return false
	}
	core.LogInfo("scene '%s' saved to %s (%d entities)", sceneID, path, s.world().EntityCount())
	return true
}

// LoadScene replaces the world contents with the entities in data.
func (s *SceneSerializer) LoadScene(data []byte) bool {
	w := s.world()
	if w == nil {
		core.LogError("scene serializer: no world to load into")
		return false
	}

	var file sceneFile
	if err := json.Unmarshal(data, &file); err != nil {
		core.LogError("scene serializer: decode: %v", err)
		return false
	}
	if file.Version > sceneFileVersion {
		core.LogWarn("scene serializer: file version %d is newer than supported %d", file.Version, sceneFileVersion)
	}

	w.Clear()
	for _, entity := range file.Entities {
		components := make(map[string]interface{}, len(entity.Components))
		for name, raw := range entity.Components {
			value, err := decodeComponent(name, raw)
			if err != nil {
				core.LogWarn("scene serializer: skipping component '%s' on entity %d: %v", name, entity.ID, err)
				continue
			}
			components[name] = value
		}
		w.RestoreEntity(world.EntityID(entity.ID), components)
	}

	core.LogInfo("scene '%s' loaded (%d entities)", file.SceneID, len(file.Entities))
	return true
}

// LoadSceneFromFile reads path and restores the world from it.
func (s *SceneSerializer) LoadSceneFromFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogError("scene serializer: read '%s': %v", path, err)
		return false
	}
	return s.LoadScene(data)
}

// decodeComponent rebuilds concrete component types for the well-known
// names so loaded worlds behave like freshly built ones.
func decodeComponent(name string, raw json.RawMessage) (interface{}, error) {
	switch name {
	case world.ComponentTransform:
		var c world.TransformComponent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case world.ComponentRenderable:
		var c world.RenderableComponent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case world.ComponentLabel:
		var c world.LabelComponent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case world.ComponentSpin:
		var c world.SpinComponent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
