package proxy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/schema"
)

func (e *Entity) relation(name string, many bool) (*Relation, error) {
	r, ok := e.desc.Relation(name)
	if !ok || r.Many != many {
		return nil, fmt.Errorf("%w %s.%s", ErrUnknownRelation, e.Name(), name)
	}
	return r, nil
}

// Related returns the entity referenced by a singular relation. An unloaded
// relation is fetched by id through the loader, cached and marked loaded.
// A relation with no id resolves to nil.
func (e *Entity) Related(ctx context.Context, name string) (*Entity, error) {
	r, err := e.relation(name, false)
	if err != nil {
		return nil, err
	}
	if e.loaded[r.Index] {
		return e.singles[r.Index], nil
	}
	id, _ := e.values[r.Slot].(uuid.UUID)
	if id == uuid.Nil {
		e.singles[r.Index], e.loaded[r.Index] = nil, true
		return nil, nil
	}
	if e.loader == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoLoader, e.Name(), name)
	}
	v, err := e.loader.LoadOne(ctx, r.Target, id)
	if err != nil {
		return nil, fmt.Errorf("proxy: load %s.%s: %w", e.Name(), name, err)
	}
	e.singles[r.Index], e.loaded[r.Index] = v, true
	return v, nil
}

// Collection returns the entities of a collection relation. An unloaded
// relation is fetched through the loader with the condition
// <Reverse>Id == id, cached and marked loaded.
func (e *Entity) Collection(ctx context.Context, name string) ([]*Entity, error) {
	r, err := e.relation(name, true)
	if err != nil {
		return nil, err
	}
	if e.loaded[r.Index] {
		return e.lists[r.Index], nil
	}
	if e.loader == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoLoader, e.Name(), name)
	}
	cs := condition.And(ReverseCondition(r, e.ID()))
	items, err := e.loader.LoadMany(ctx, r.Target, cs)
	if err != nil {
		return nil, fmt.Errorf("proxy: load %s.%s: %w", e.Name(), name, err)
	}
	e.lists[r.Index], e.loaded[r.Index] = items, true
	e.linkReverse(r, items, false)
	return items, nil
}

// ReverseCondition returns the condition selecting the members of a
// collection relation owned by id.
func ReverseCondition(r *Relation, id uuid.UUID) *condition.Condition {
	return condition.FieldEQ(schema.RelationIDField(r.Reverse), id)
}

// LoadedRelated returns the cached entity of a loaded singular relation
// without fetching. ok is false when the relation is not loaded.
func (e *Entity) LoadedRelated(name string) (v *Entity, ok bool) {
	r, err := e.relation(name, false)
	if err != nil || !e.loaded[r.Index] {
		return nil, false
	}
	return e.singles[r.Index], true
}

// LoadedCollection returns the cached entities of a loaded collection
// relation without fetching. ok is false when the relation is not loaded.
func (e *Entity) LoadedCollection(name string) (v []*Entity, ok bool) {
	r, err := e.relation(name, true)
	if err != nil || !e.loaded[r.Index] {
		return nil, false
	}
	return e.lists[r.Index], true
}

// SetRelated sets a singular relation, marks it loaded and stores the id of
// v, or nil, in the relation id slot.
func (e *Entity) SetRelated(name string, v *Entity) error {
	r, err := e.relation(name, false)
	if err != nil {
		return err
	}
	if v != nil && v.Name() != r.Target {
		return fmt.Errorf("proxy: %s.%s expects %s, got %s", e.Name(), name, r.Target, v.Name())
	}
	e.singles[r.Index], e.loaded[r.Index] = v, true
	if v == nil {
		e.values[r.Slot] = nil
		return nil
	}
	e.values[r.Slot] = v.ID()
	return nil
}

// SetCollection sets a collection relation and marks it loaded. Every item
// gets its reverse relation pointed at e.
func (e *Entity) SetCollection(name string, items []*Entity) error {
	r, err := e.relation(name, true)
	if err != nil {
		return err
	}
	for _, v := range items {
		if v == nil || v.Name() != r.Target {
			return fmt.Errorf("proxy: %s.%s expects items of %s", e.Name(), name, r.Target)
		}
	}
	e.lists[r.Index], e.loaded[r.Index] = items, true
	e.linkReverse(r, items, true)
	return nil
}

// linkReverse points the reverse relation of every item at e. Items that
// already reference another owner keep their id unless force is set.
func (e *Entity) linkReverse(r *Relation, items []*Entity, force bool) {
	for _, v := range items {
		rr, ok := v.desc.Relation(r.Reverse)
		if !ok || rr.Many {
			continue
		}
		if id, _ := v.values[rr.Slot].(uuid.UUID); !force && id != e.ID() {
			continue
		}
		v.singles[rr.Index], v.loaded[rr.Index] = e, true
		v.values[rr.Slot] = e.ID()
	}
}
