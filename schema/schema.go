package schema

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/nvt2106/magicstore/internal/ident"
)

// Kind classifies how a field is stored and tracked by a proxy.
type Kind uint8

// Field kinds.
const (
	KindInvalid Kind = iota
	KindPrimitive
	KindString
	KindID
	KindDateTime
	KindSingularRelation
	KindCollectionRelation
)

var kindNames = [...]string{
	KindInvalid:            "invalid",
	KindPrimitive:          "primitive",
	KindString:             "string",
	KindID:                 "id",
	KindDateTime:           "datetime",
	KindSingularRelation:   "singular relation",
	KindCollectionRelation: "collection relation",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsRelation reports whether the kind references another entity.
func (k Kind) IsRelation() bool {
	return k == KindSingularRelation || k == KindCollectionRelation
}

// IsStored reports whether the kind is a singular stored value.
func (k Kind) IsStored() bool {
	return k == KindPrimitive || k == KindString || k == KindID || k == KindDateTime
}

// Field describes one declared property of an entity.
type Field struct {
	// Name of the field. Must be a valid identifier.
	Name string
	// Kind of the field.
	Kind Kind
	// Type is the storage type of singular fields. TypeInvalid for relations.
	Type Type
	// Target is the entity name referenced by relation fields.
	Target string
	// Required fields fail data validation when empty.
	Required bool
	// MinLen and MaxLen bound string lengths. Zero means unset.
	MinLen, MaxLen int
	// UniqueGroup is the unique group the field belongs to, if any.
	UniqueGroup string
	// Virtual is false for relations declared by value, which proxies cannot intercept.
	Virtual bool
	// Nullable fields accept nil values.
	Nullable bool
	// TypeName is the declared type, used in validation messages.
	TypeName string
	// Index is the struct field index for entities declared from Go structs.
	Index []int
	// Err holds a declaration error recorded by a builder.
	Err error
}

// Descriptor implements the Descriptor interface.
func (f *Field) Descriptor() *Field { return f }

// IsRelation reports whether the field references another entity.
func (f *Field) IsRelation() bool { return f.Kind.IsRelation() }

// IsSingularRelation reports whether the field references at most one entity.
func (f *Field) IsSingularRelation() bool { return f.Kind == KindSingularRelation }

// IsCollection reports whether the field references many entities.
func (f *Field) IsCollection() bool { return f.Kind == KindCollectionRelation }

// SetLength sets the string length bounds.
func (f *Field) SetLength(minLen, maxLen int) error {
	switch {
	case minLen < 0:
		return fmt.Errorf("schema: min length of %q must be >= 0", f.Name)
	case maxLen <= 0:
		return fmt.Errorf("schema: max length of %q must be > 0", f.Name)
	case maxLen < minLen:
		return fmt.Errorf("schema: max length of %q must be greater or equal to min length", f.Name)
	}
	f.MinLen, f.MaxLen = minLen, maxLen
	return nil
}

// SetUnique adds the field to a unique group. An empty group joins DefaultUniqueGroup.
func (f *Field) SetUnique(group string) {
	if group == "" {
		group = DefaultUniqueGroup
	}
	f.UniqueGroup = group
}

// NewField returns a singular field of the given storage type.
func NewField(name string, t Type) *Field {
	return &Field{
		Name:     name,
		Kind:     t.Kind(),
		Type:     t,
		TypeName: t.String(),
	}
}

// NewRelation returns a virtual relation field to the target entity.
func NewRelation(name, target string, many bool) *Field {
	f := &Field{
		Name:     name,
		Kind:     KindSingularRelation,
		Target:   target,
		Virtual:  true,
		TypeName: target,
	}
	if many {
		f.Kind = KindCollectionRelation
		f.TypeName = "[]" + target
	}
	return f
}

// Descriptor is implemented by field and relation builders.
type Descriptor interface {
	Descriptor() *Field
}

// Entity describes an entity type: its name and ordered fields.
// Entities are immutable once registered with an entity context.
type Entity struct {
	Name   string
	Fields []*Field
	// GoType is the struct type for entities declared with FromStruct.
	GoType reflect.Type

	index map[string]int
}

// New builds an entity schema from field descriptors.
func New(name string, fields ...Descriptor) (*Entity, error) {
	if !ident.Valid(name) {
		return nil, fmt.Errorf("schema: entity name %q is not a valid identifier", name)
	}
	e := &Entity{Name: name, index: make(map[string]int, len(fields))}
	var errs []error
	for _, d := range fields {
		if d == nil {
			return nil, fmt.Errorf("schema: nil field in entity %q", name)
		}
		f := d.Descriptor()
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("schema: field %s.%s: %w", name, f.Name, f.Err))
			continue
		}
		if !ident.Valid(f.Name) {
			errs = append(errs, fmt.Errorf("schema: field name %q of %s is not a valid identifier", f.Name, name))
			continue
		}
		if _, ok := e.index[f.Name]; ok {
			errs = append(errs, fmt.Errorf("schema: duplicate field %s.%s", name, f.Name))
			continue
		}
		e.index[f.Name] = len(e.Fields)
		e.Fields = append(e.Fields, f)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return e, nil
}

// MustNew is like New but panics on error.
func MustNew(name string, fields ...Descriptor) *Entity {
	e, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return e
}

// Field returns the declared field with the given name.
func (e *Entity) Field(name string) (*Field, bool) {
	if e.index == nil {
		for _, f := range e.Fields {
			if f.Name == name {
				return f, true
			}
		}
		return nil, false
	}
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.Fields[i], true
}

// StoredFields returns the singular non-relation fields in declaration order.
func (e *Entity) StoredFields() []*Field {
	var fs []*Field
	for _, f := range e.Fields {
		if !f.IsRelation() {
			fs = append(fs, f)
		}
	}
	return fs
}

// Relations returns the relation fields in declaration order.
func (e *Entity) Relations() []*Field {
	var fs []*Field
	for _, f := range e.Fields {
		if f.IsRelation() {
			fs = append(fs, f)
		}
	}
	return fs
}

// HasSingularRelationTo reports whether e declares a singular relation named
// after target and pointing at it.
func (e *Entity) HasSingularRelationTo(target string) bool {
	f, ok := e.Field(target)
	return ok && f.IsSingularRelation() && f.Target == target
}

// UniqueGroup is a named set of fields whose combined values must be unique.
type UniqueGroup struct {
	Name   string
	Fields []string
}

// UniqueGroups returns the unique groups in order of first declaration.
// Singular relations contribute their id field.
func (e *Entity) UniqueGroups() []UniqueGroup {
	var (
		groups []UniqueGroup
		pos    = make(map[string]int)
	)
	for _, f := range e.Fields {
		if f.UniqueGroup == "" || f.IsCollection() {
			continue
		}
		name := f.Name
		if f.IsSingularRelation() {
			name = RelationIDField(f.Name)
		}
		i, ok := pos[f.UniqueGroup]
		if !ok {
			i = len(groups)
			pos[f.UniqueGroup] = i
			groups = append(groups, UniqueGroup{Name: f.UniqueGroup})
		}
		groups[i].Fields = append(groups[i].Fields, name)
	}
	return groups
}

// String returns the entity name.
func (e *Entity) String() string { return e.Name }
