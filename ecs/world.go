package ecs

import (
	"slices"

	"github.com/milk9111/aicore/ecs/component"
)

// World is the component store shared by the game and the AI core.
// Entities are created by the game; the AI only attaches and detaches
// components. It is not safe for concurrent use.
type World struct {
	entities entityStore
	stores   map[component.ComponentID]*SparseSet
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{stores: make(map[component.ComponentID]*SparseSet)}
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.entities.create()
}

// DestroyEntity frees every component attached to e and invalidates the handle.
func (w *World) DestroyEntity(e Entity) bool {
	if !w.entities.isAlive(e) {
		return false
	}
	for _, store := range w.stores {
		store.Remove(e.id())
	}
	return w.entities.destroy(e)
}

// IsAlive reports whether e refers to a live entity.
func (w *World) IsAlive(e Entity) bool {
	return w != nil && w.entities.isAlive(e)
}

// Entities returns every live entity in ascending order.
func (w *World) Entities() []Entity {
	return w.entities.all()
}

// AddComponent attaches or replaces the value of kind id on e.
func (w *World) AddComponent(e Entity, id component.ComponentID, value any) error {
	if id == 0 {
		return component.ErrInvalidComponentKind
	}
	if value == nil {
		return component.ErrNilComponent
	}
	if !w.entities.isAlive(e) {
		return component.ErrEntityNotAlive
	}
	store, ok := w.stores[id]
	if !ok {
		store = &SparseSet{}
		w.stores[id] = store
	}
	store.Set(e.id(), value)
	return nil
}

// GetComponent returns the value of kind id on e.
func (w *World) GetComponent(e Entity, id component.ComponentID) (any, bool) {
	if !w.entities.isAlive(e) {
		return nil, false
	}
	return w.stores[id].Get(e.id())
}

// HasComponent reports whether e carries kind id.
func (w *World) HasComponent(e Entity, id component.ComponentID) bool {
	return w.entities.isAlive(e) && w.stores[id].Has(e.id())
}

// RemoveComponent detaches kind id from e.
func (w *World) RemoveComponent(e Entity, id component.ComponentID) bool {
	if !w.entities.isAlive(e) {
		return false
	}
	return w.stores[id].Remove(e.id())
}

// Query returns the entities carrying every listed kind, sorted ascending.
// The slice is a snapshot: mutating the world while iterating it is safe.
func (w *World) Query(ids ...component.ComponentID) []Entity {
	if len(ids) == 0 {
		return w.Entities()
	}
	sets := make([]*SparseSet, 0, len(ids))
	for _, id := range ids {
		store, ok := w.stores[id]
		if !ok || store.Len() == 0 {
			return nil
		}
		sets = append(sets, store)
	}
	slots := intersect(sets)
	out := make([]Entity, 0, len(slots))
	for _, slot := range slots {
		out = append(out, w.entities.handle(slot))
	}
	slices.Sort(out)
	return out
}

// First returns the lowest entity carrying every listed kind.
func (w *World) First(ids ...component.ComponentID) (Entity, bool) {
	found := w.Query(ids...)
	if len(found) == 0 {
		return 0, false
	}
	return found[0], true
}
