package proxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/schema"
)

var (
	// ErrUnknownSlot is returned when a name does not match any slot.
	ErrUnknownSlot = errors.New("proxy: unknown slot")
	// ErrUnknownRelation is returned when a name does not match any relation.
	ErrUnknownRelation = errors.New("proxy: unknown relation")
	// ErrNoLoader is returned when an unloaded relation is read from an
	// entity that is not bound to a loader.
	ErrNoLoader = errors.New("proxy: entity is not bound to a loader")
)

// Loader resolves lazy relations. Entity contexts implement it.
type Loader interface {
	// LoadOne returns the entity of the target schema with the given id, or
	// nil if there is none.
	LoadOne(ctx context.Context, target string, id uuid.UUID) (*Entity, error)
	// LoadMany returns the entities of the target schema matching cs.
	LoadMany(ctx context.Context, target string, cs *condition.Conditions) ([]*Entity, error)
}

// Entity is a proxy instance: slot values with their previous-value shadows,
// relation storage and loaded flags. Entities are not safe for concurrent use.
type Entity struct {
	desc     *Descriptor
	values   []any
	previous []any
	loaded   []bool
	singles  []*Entity
	lists    [][]*Entity
	loader   Loader
}

// Descriptor returns the descriptor of the entity.
func (e *Entity) Descriptor() *Descriptor { return e.desc }

// Name returns the schema name of the entity.
func (e *Entity) Name() string { return e.desc.Schema.Name }

// ID returns the entity id.
func (e *Entity) ID() uuid.UUID {
	id, _ := e.values[0].(uuid.UUID)
	return id
}

// SetID sets the entity id.
func (e *Entity) SetID(id uuid.UUID) { e.values[0] = id }

// Loader returns the loader the entity is bound to.
func (e *Entity) Loader() Loader { return e.loader }

// Bind binds the entity to a loader.
func (e *Entity) Bind(l Loader) { e.loader = l }

// String returns the schema name and id.
func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s)", e.Name(), e.ID())
}

func (e *Entity) slot(name string) (*Slot, error) {
	s, ok := e.desc.Slot(name)
	if !ok {
		return nil, fmt.Errorf("%w %s.%s", ErrUnknownSlot, e.Name(), name)
	}
	return s, nil
}

// Get returns the value of a slot.
func (e *Entity) Get(name string) (any, error) {
	s, err := e.slot(name)
	if err != nil {
		return nil, err
	}
	return e.values[s.Index], nil
}

// Value implements condition.Record.
func (e *Entity) Value(name string) (any, bool) {
	s, ok := e.desc.Slot(name)
	if !ok {
		return nil, false
	}
	return e.values[s.Index], true
}

// Set stores v in a slot after converting it to the slot type. Setting the
// id slot of a singular relation drops the cached related entity.
func (e *Entity) Set(name string, v any) error {
	s, err := e.slot(name)
	if err != nil {
		return err
	}
	nv, err := s.Type.Normalize(v)
	if err != nil {
		return fmt.Errorf("proxy: set %s.%s: %w", e.Name(), name, err)
	}
	if s.Index == 0 && nv == nil {
		nv = uuid.Nil
	}
	e.values[s.Index] = nv
	if s.Relation != "" {
		r, _ := e.desc.Relation(s.Relation)
		if cached := e.singles[r.Index]; cached == nil || nv == nil || cached.ID() != nv {
			e.singles[r.Index] = nil
			e.loaded[r.Index] = false
		}
	}
	return nil
}

// Load sets several slots at once.
func (e *Entity) Load(values map[string]any) error {
	var errs []error
	for name, v := range values {
		if err := e.Set(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Values returns a copy of the slot values keyed by slot name.
func (e *Entity) Values() map[string]any {
	m := make(map[string]any, len(e.values))
	for i, s := range e.desc.Slots {
		m[s.Name] = e.values[i]
	}
	return m
}

// Previous returns the previous value of a slot.
func (e *Entity) Previous(name string) (any, error) {
	s, err := e.slot(name)
	if err != nil {
		return nil, err
	}
	return e.previous[s.Index], nil
}

// IsDirty reports whether any slot differs from its previous value.
func (e *Entity) IsDirty() bool {
	for i := range e.values {
		if !schema.Equal(e.values[i], e.previous[i]) {
			return true
		}
	}
	return false
}

// Changes returns the names of the slots that differ from their previous values.
func (e *Entity) Changes() []string {
	var names []string
	for i, s := range e.desc.Slots {
		if !schema.Equal(e.values[i], e.previous[i]) {
			names = append(names, s.Name)
		}
	}
	return names
}

// ClearChanges makes the current values the previous values.
func (e *Entity) ClearChanges() {
	copy(e.previous, e.values)
}

// IsNew reports whether the entity has never been persisted, i.e. its
// previous id is nil.
func (e *Entity) IsNew() bool {
	id, _ := e.previous[0].(uuid.UUID)
	return id == uuid.Nil
}

// Reset drops every cached relation and marks all relations unloaded.
func (e *Entity) Reset() {
	for i := range e.loaded {
		e.loaded[i] = false
		e.singles[i] = nil
		e.lists[i] = nil
	}
}

// IsLoaded reports whether a relation is loaded.
func (e *Entity) IsLoaded(name string) bool {
	r, ok := e.desc.Relation(name)
	return ok && e.loaded[r.Index]
}

// MarkLoaded marks the named relations, or all relations if none are
// named, as loaded without fetching them. Unloaded relations keep their
// cached values, which are empty.
func (e *Entity) MarkLoaded(names ...string) error {
	if len(names) == 0 {
		for i := range e.loaded {
			e.loaded[i] = true
		}
		return nil
	}
	for _, name := range names {
		r, ok := e.desc.Relation(name)
		if !ok {
			return fmt.Errorf("%w %s.%s", ErrUnknownRelation, e.Name(), name)
		}
		e.loaded[r.Index] = true
	}
	return nil
}
