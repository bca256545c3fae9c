package proxy

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/nvt2106/magicstore/schema"
)

// Slot is one stored value of a proxy. Every slot has a previous-value shadow
// used for dirty checking.
type Slot struct {
	Name  string
	Type  schema.Type
	Index int
	// Field is the declared field, or nil for EntityId and relation id slots.
	Field *schema.Field
	// Relation names the singular relation backed by a relation id slot.
	Relation string
}

// IsGenerated reports whether the slot was not declared by the schema.
func (s *Slot) IsGenerated() bool { return s.Field == nil }

// Relation describes one relation of a proxy, declared or injected.
type Relation struct {
	Name   string
	Target string
	Many   bool
	Index  int
	// Slot is the index of the id slot of a singular relation, -1 for collections.
	Slot int
	// Reverse names the singular relation on the target that points back to
	// the owner of a collection.
	Reverse string
	// Field is the declared field, or nil for injected reverse relations.
	Field *schema.Field
}

// IsInjected reports whether the relation was added as the reverse of a collection.
func (r *Relation) IsInjected() bool { return r.Field == nil }

// Required reports whether a singular relation must reference an entity.
func (r *Relation) Required() bool { return r.Field != nil && r.Field.Required }

// Descriptor is the slot table of an entity schema. It is built once per
// schema and is read-only afterwards.
type Descriptor struct {
	Schema    *schema.Entity
	Slots     []Slot
	Relations []Relation

	slots     map[string]int
	relations map[string]int
}

// Name returns the schema name.
func (d *Descriptor) Name() string { return d.Schema.Name }

// String returns the schema name.
func (d *Descriptor) String() string { return d.Schema.Name }

// Slot returns the slot with the given name.
func (d *Descriptor) Slot(name string) (*Slot, bool) {
	i, ok := d.slots[name]
	if !ok {
		return nil, false
	}
	return &d.Slots[i], true
}

// Relation returns the relation with the given name.
func (d *Descriptor) Relation(name string) (*Relation, bool) {
	i, ok := d.relations[name]
	if !ok {
		return nil, false
	}
	return &d.Relations[i], true
}

// New returns a proxy with default slot values, a nil id and no loaded
// relations. The proxy is not bound to a loader.
func (d *Descriptor) New() *Entity {
	e := &Entity{
		desc:     d,
		values:   make([]any, len(d.Slots)),
		previous: make([]any, len(d.Slots)),
		loaded:   make([]bool, len(d.Relations)),
		singles:  make([]*Entity, len(d.Relations)),
		lists:    make([][]*Entity, len(d.Relations)),
	}
	e.values[0], e.previous[0] = uuid.Nil, uuid.Nil
	return e
}

// Describe builds the descriptor of e. all is the complete set of schemas e
// is registered with; it is used to inject reverse relations for collections
// that target e.
func Describe(e *schema.Entity, all []*schema.Entity) (*Descriptor, error) {
	if e == nil {
		return nil, fmt.Errorf("proxy: describe nil schema")
	}
	d := &Descriptor{
		Schema:    e,
		slots:     make(map[string]int),
		relations: make(map[string]int),
	}
	if err := d.addSlot(Slot{Name: schema.IDField, Type: schema.TypeUUID}); err != nil {
		return nil, err
	}
	for _, f := range e.StoredFields() {
		if err := d.addSlot(Slot{Name: f.Name, Type: f.Type, Field: f}); err != nil {
			return nil, err
		}
	}
	for _, f := range e.Relations() {
		r := Relation{Name: f.Name, Target: f.Target, Many: f.IsCollection(), Slot: -1, Field: f}
		if r.Many {
			r.Reverse = e.Name
		}
		if err := d.addRelation(r); err != nil {
			return nil, err
		}
	}
	for _, owner := range all {
		if owner == nil || !targetedBy(owner, e.Name) || e.HasSingularRelationTo(owner.Name) {
			continue
		}
		if _, ok := d.relations[owner.Name]; ok {
			continue
		}
		if err := d.addRelation(Relation{Name: owner.Name, Target: owner.Name, Slot: -1}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// targetedBy reports whether owner declares a collection of target.
func targetedBy(owner *schema.Entity, target string) bool {
	for _, f := range owner.Relations() {
		if f.IsCollection() && f.Target == target {
			return true
		}
	}
	return false
}

func (d *Descriptor) addSlot(s Slot) error {
	if _, ok := d.slots[s.Name]; ok {
		return fmt.Errorf("proxy: %s.%s conflicts with a generated slot", d.Schema.Name, s.Name)
	}
	s.Index = len(d.Slots)
	d.slots[s.Name] = s.Index
	d.Slots = append(d.Slots, s)
	return nil
}

func (d *Descriptor) addRelation(r Relation) error {
	if _, ok := d.relations[r.Name]; ok {
		return fmt.Errorf("proxy: duplicate relation %s.%s", d.Schema.Name, r.Name)
	}
	if !r.Many {
		s := Slot{Name: schema.RelationIDField(r.Name), Type: schema.TypeUUID, Relation: r.Name}
		if err := d.addSlot(s); err != nil {
			return err
		}
		r.Slot = d.slots[s.Name]
	}
	r.Index = len(d.Relations)
	d.relations[r.Name] = r.Index
	d.Relations = append(d.Relations, r)
	return nil
}

// sameShape reports whether two descriptors have the same slots, relations
// and field constraints, so that either one validates and converts entities
// the same way.
func sameShape(a, b *Descriptor) bool {
	if a.Schema.GoType != b.Schema.GoType || len(a.Schema.Fields) != len(b.Schema.Fields) {
		return false
	}
	if len(a.Slots) != len(b.Slots) || len(a.Relations) != len(b.Relations) {
		return false
	}
	for i := range a.Schema.Fields {
		if !sameField(a.Schema.Fields[i], b.Schema.Fields[i]) {
			return false
		}
	}
	for i := range a.Slots {
		if a.Slots[i].Name != b.Slots[i].Name || a.Slots[i].Type != b.Slots[i].Type {
			return false
		}
	}
	for i := range a.Relations {
		x, y := a.Relations[i], b.Relations[i]
		if x.Name != y.Name || x.Target != y.Target || x.Many != y.Many {
			return false
		}
	}
	return true
}

func sameField(x, y *schema.Field) bool {
	return x.Name == y.Name &&
		x.Kind == y.Kind &&
		x.Type == y.Type &&
		x.Target == y.Target &&
		x.Required == y.Required &&
		x.MinLen == y.MinLen &&
		x.MaxLen == y.MaxLen &&
		x.UniqueGroup == y.UniqueGroup &&
		x.Virtual == y.Virtual &&
		x.Nullable == y.Nullable &&
		slices.Equal(x.Index, y.Index)
}
