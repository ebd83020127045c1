package world

import "slices"

// EntityID identifies one entity. IDs are never reused within a World's
// lifetime, so a stale ID can never alias a newer entity.
type EntityID uint64

// World is a minimal entity/component store. The application host owns a
// single instance; scenes populate it and the scene serializer
// round-trips it. Components are stored under string names so gameplay
// code and persisted state share one vocabulary. Main-thread owned, not
// safe for concurrent mutation.
type World struct {
	nextID   EntityID
	entities map[EntityID]map[string]interface{}
}

func New() *World {
	return &World{
		entities: make(map[EntityID]map[string]interface{}),
	}
}

func (w *World) CreateEntity() EntityID {
	w.nextID++
	id := w.nextID
	w.entities[id] = make(map[string]interface{})
	return id
}

func (w *World) DestroyEntity(id EntityID) {
	delete(w.entities, id)
}

func (w *World) Alive(id EntityID) bool {
	_, ok := w.entities[id]
	return ok
}

func (w *World) EntityCount() int {
	return len(w.entities)
}

// SetComponent attaches value under name, replacing any previous value.
// Unknown entities are ignored.
func (w *World) SetComponent(id EntityID, name string, value interface{}) {
	comps, ok := w.entities[id]
	if !ok {
		return
	}
	comps[name] = value
}

func (w *World) Component(id EntityID, name string) (interface{}, bool) {
	comps, ok := w.entities[id]
	if !ok {
		return nil, false
	}
	v, ok := comps[name]
	return v, ok
}

func (w *World) RemoveComponent(id EntityID, name string) {
	if comps, ok := w.entities[id]; ok {
		delete(comps, name)
	}
}

// Components returns a copy of one entity's component map, nil for
// unknown entities.
func (w *World) Components(id EntityID) map[string]interface{} {
	comps, ok := w.entities[id]
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(comps))
	for k, v := range comps {
		out[k] = v
	}
	return out
}

// EachEntity visits every live entity until fn returns false. Iteration
// order is unspecified.
func (w *World) EachEntity(fn func(EntityID) bool) {
	for id := range w.entities {
		if !fn(id) {
			return
		}
	}
}

// EntitiesWith returns the IDs of entities carrying the named component,
// in ascending ID order.
func (w *World) EntitiesWith(name string) []EntityID {
	var ids []EntityID
	for id, comps := range w.entities {
		if _, ok := comps[name]; ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// RestoreEntity recreates an entity under a specific ID, as persisted
// state loads do. The ID counter advances past restored IDs.
func (w *World) RestoreEntity(id EntityID, components map[string]interface{}) {
	comps := make(map[string]interface{}, len(components))
	for k, v := range components {
		comps[k] = v
	}
	w.entities[id] = comps
	if id > w.nextID {
		w.nextID = id
	}
}

// Clear removes every entity. The ID counter keeps advancing.
func (w *World) Clear() {
	w.entities = make(map[EntityID]map[string]interface{})
}
