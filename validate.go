package magicstore

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
)

// Validate checks the data of e against its schema: required fields,
// string lengths and unique groups. It returns Errors, or nil if e is valid.
func (ec *EntityContext) Validate(ctx context.Context, e *proxy.Entity) error {
	if e == nil {
		return fmt.Errorf("%w: entity", ErrNilArgument)
	}
	if _, err := ec.managed(e); err != nil {
		return err
	}
	if errs := ec.validate(ctx, e); len(errs) > 0 {
		return errs
	}
	return nil
}

func (ec *EntityContext) validate(ctx context.Context, e *proxy.Entity) Errors {
	var errs Errors
	add := func(format string, args ...any) {
		errs = append(errs, &Error{Message: fmt.Sprintf(format, args...)})
	}
	d := e.Descriptor()
	for _, f := range d.Schema.Fields {
		switch {
		case f.IsCollection():
			continue
		case f.IsSingularRelation():
			if f.Required {
				if v, _ := e.Value(schema.RelationIDField(f.Name)); schema.IsZero(v) {
					add("Property '%s' is required", f.Name)
				}
			}
			continue
		}
		v, _ := e.Value(f.Name)
		if f.Required && schema.IsZero(v) {
			add("Property '%s' is required", f.Name)
		}
		if f.Kind != schema.KindString {
			continue
		}
		s, _ := v.(string)
		blank := strings.TrimSpace(s) == ""
		if f.MaxLen > 0 && !blank && utf8.RuneCountInString(s) > f.MaxLen {
			add("Length of property '%s' is exceed %d", f.Name, f.MaxLen)
		}
		if f.MinLen > 0 {
			n := utf8.RuneCountInString(s)
			if blank {
				n = 0
			}
			if n < f.MinLen {
				add("Length of property '%s' is less than %d", f.Name, f.MinLen)
			}
		}
	}
	for _, g := range d.Schema.UniqueGroups() {
		dup, err := ec.duplicate(ctx, e, g)
		if err != nil {
			errs = append(errs, &Error{Message: err.Error(), Err: err})
			continue
		}
		if dup {
			add("Duplicate entity for unique groups (%s)", strings.Join(uniqueFieldNames(d.Schema, g), ","))
		}
	}
	return errs
}

// duplicate reports whether another stored entity has the same values as e
// for the fields of g. The query policy is not applied.
func (ec *EntityContext) duplicate(ctx context.Context, e *proxy.Entity, g schema.UniqueGroup) (bool, error) {
	cs := condition.And()
	for _, name := range g.Fields {
		v, _ := e.Value(name)
		cs.Add(condition.FieldEQ(name, v))
	}
	items, err := ec.fetch(ctx, e.Descriptor(), cs, condition.First())
	if err != nil {
		return false, err
	}
	return len(items) > 0 && items[0].ID() != e.ID(), nil
}

// uniqueFieldNames returns the declared names of the fields of g.
func uniqueFieldNames(s *schema.Entity, g schema.UniqueGroup) []string {
	var names []string
	for _, f := range s.Fields {
		if f.UniqueGroup == g.Name && !f.IsCollection() {
			names = append(names, f.Name)
		}
	}
	return names
}
