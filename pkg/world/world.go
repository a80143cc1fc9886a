// Package world holds the entities the renderer draws: where each CSG tree
// sits, which material it uses, the camera and the sun.
//
// Entities are stored as parallel slices indexed through a stable ID map so
// the frame loop can walk them without chasing pointers.
package world

import (
	"iter"

	"github.com/chazu/morpheus/pkg/asset"
)

// EntityID identifies an entity for its whole lifetime. IDs are never reused.
type EntityID uint32

// Renderable links an entity to the assets drawn for it.
type Renderable struct {
	CSG      asset.Key
	Material asset.Key
}

// Entity is one row of the store.
type Entity struct {
	ID         EntityID
	Transform  Transform
	Renderable Renderable
}

// World is the entity store plus the scene-wide camera and sun.
type World struct {
	Camera Camera
	Sun    DirectionalLight

	ids         []EntityID
	transforms  []Transform
	renderables []Renderable
	dirty       []bool

	index map[EntityID]int
	next  EntityID

	lightsDirty bool
}

// New returns an empty world viewed through camera.
func New(camera Camera) *World {
	return &World{
		Camera:      camera,
		Sun:         DefaultSun(),
		index:       make(map[EntityID]int),
		next:        1,
		lightsDirty: true,
	}
}

// Spawn adds an entity. It starts dirty so its instance data is uploaded on
// the next frame.
func (w *World) Spawn(t Transform, r Renderable) EntityID {
	id := w.next
	w.next++
	w.index[id] = len(w.ids)
	w.ids = append(w.ids, id)
	w.transforms = append(w.transforms, t)
	w.renderables = append(w.renderables, r)
	w.dirty = append(w.dirty, true)
	return id
}

// Despawn removes id. It reports whether the entity existed.
func (w *World) Despawn(id EntityID) bool {
	i, ok := w.index[id]
	if !ok {
		return false
	}
	last := len(w.ids) - 1
	if i != last {
		w.ids[i] = w.ids[last]
		w.transforms[i] = w.transforms[last]
		w.renderables[i] = w.renderables[last]
		w.dirty[i] = w.dirty[last]
		w.index[w.ids[i]] = i
	}
	w.ids = w.ids[:last]
	w.transforms = w.transforms[:last]
	w.renderables = w.renderables[:last]
	w.dirty = w.dirty[:last]
	delete(w.index, id)
	return true
}

// Clear removes every entity.
func (w *World) Clear() {
	w.ids = w.ids[:0]
	w.transforms = w.transforms[:0]
	w.renderables = w.renderables[:0]
	w.dirty = w.dirty[:0]
	clear(w.index)
}

// Len returns the number of entities.
func (w *World) Len() int { return len(w.ids) }

// Contains reports whether id is alive.
func (w *World) Contains(id EntityID) bool {
	_, ok := w.index[id]
	return ok
}

// Transform returns the transform of id.
func (w *World) Transform(id EntityID) (Transform, bool) {
	i, ok := w.index[id]
	if !ok {
		return Transform{}, false
	}
	return w.transforms[i], true
}

// SetTransform replaces the transform of id and marks it dirty.
func (w *World) SetTransform(id EntityID, t Transform) bool {
	i, ok := w.index[id]
	if !ok {
		return false
	}
	w.transforms[i] = t
	w.dirty[i] = true
	return true
}

// Renderable returns the assets drawn for id.
func (w *World) Renderable(id EntityID) (Renderable, bool) {
	i, ok := w.index[id]
	if !ok {
		return Renderable{}, false
	}
	return w.renderables[i], true
}

// SetRenderable replaces the assets drawn for id and marks it dirty.
func (w *World) SetRenderable(id EntityID, r Renderable) bool {
	i, ok := w.index[id]
	if !ok {
		return false
	}
	w.renderables[i] = r
	w.dirty[i] = true
	return true
}

// Renderables yields every entity in storage order. The store must not be
// modified during iteration.
func (w *World) Renderables() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for i, id := range w.ids {
			if !yield(Entity{ID: id, Transform: w.transforms[i], Renderable: w.renderables[i]}) {
				return
			}
		}
	}
}

// DirtyEntities returns the entities changed since they were last marked
// clean.
func (w *World) DirtyEntities() []EntityID {
	var out []EntityID
	for i, d := range w.dirty {
		if d {
			out = append(out, w.ids[i])
		}
	}
	return out
}

// IsDirty reports whether id changed since it was last marked clean.
func (w *World) IsDirty(id EntityID) bool {
	i, ok := w.index[id]
	return ok && w.dirty[i]
}

// MarkClean clears the dirty flag of id.
func (w *World) MarkClean(id EntityID) {
	if i, ok := w.index[id]; ok {
		w.dirty[i] = false
	}
}

// SetSun replaces the sun and flags the light block for upload.
func (w *World) SetSun(l DirectionalLight) {
	w.Sun = l
	w.lightsDirty = true
}

// LightsDirty reports whether the sun changed since MarkLightsClean.
func (w *World) LightsDirty() bool { return w.lightsDirty }

// MarkLightsClean clears the light dirty flag.
func (w *World) MarkLightsClean() { w.lightsDirty = false }
