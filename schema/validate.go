package schema

import (
	"fmt"
	"strings"
)

// Violation is a single structural problem found in an entity declaration.
type Violation struct {
	Entity  string
	Field   string
	Message string
}

// String returns a human-readable representation of the violation.
func (v Violation) String() string {
	return fmt.Sprintf("%s.%s: %s", v.Entity, v.Field, v.Message)
}

// ValidationError is returned when a set of entity schemas is not declared
// consistently. It lists every violation found, not just the first.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema: %d structure violation(s):", len(e.Violations))
	for i, v := range e.Violations {
		fmt.Fprintf(&b, "\n  [%d] %s", i+1, v)
	}
	return b.String()
}

// Messages returns the violation messages without entity prefixes.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return msgs
}

// Validate checks that every entity in the set is declared consistently and
// returns a *ValidationError listing all violations, or nil.
func Validate(entities []*Entity) error {
	known := make(map[string]bool, len(entities))
	for _, e := range entities {
		known[e.Name] = true
	}
	var violations []Violation
	for _, e := range entities {
		violations = append(violations, validateEntity(e, known)...)
	}
	violations = append(violations, validateReverse(entities)...)
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func validateEntity(e *Entity, known map[string]bool) []Violation {
	var (
		vs  []Violation
		add = func(f *Field, format string, args ...any) {
			vs = append(vs, Violation{Entity: e.Name, Field: f.Name, Message: fmt.Sprintf(format, args...)})
		}
		generated = map[string]bool{IDField: true}
	)
	for _, f := range e.Fields {
		if f.IsSingularRelation() {
			generated[RelationIDField(f.Name)] = true
		}
	}
	for _, f := range e.Fields {
		if f.Kind == KindInvalid {
			add(f, "Type '%s' is not valid for property '%s'", f.TypeName, f.Name)
			continue
		}
		if generated[f.Name] {
			add(f, "Property '%s' conflicts with a generated property", f.Name)
		}
		if !f.IsRelation() {
			continue
		}
		if !f.Virtual {
			add(f, "Property '%s' must be declared as virtual", f.Name)
		}
		if f.IsSingularRelation() && f.Name != f.Target {
			add(f, "Property '%s' must be renamed to '%s'", f.Name, f.Target)
		}
		if !known[f.Target] {
			add(f, "Type '%s' of property '%s' does not exist in entity context", f.Target, f.Name)
		}
	}
	return vs
}

// validateReverse reports declared fields that clash with the reverse
// relation injected on the target of a collection relation.
func validateReverse(entities []*Entity) []Violation {
	byName := make(map[string]*Entity, len(entities))
	for _, e := range entities {
		byName[e.Name] = e
	}
	var vs []Violation
	for _, owner := range entities {
		for _, f := range owner.Fields {
			target, ok := byName[f.Target]
			if !f.IsCollection() || !ok || target.HasSingularRelationTo(owner.Name) {
				continue
			}
			for _, name := range []string{owner.Name, RelationIDField(owner.Name)} {
				if tf, ok := target.Field(name); ok {
					vs = append(vs, Violation{
						Entity:  target.Name,
						Field:   tf.Name,
						Message: fmt.Sprintf("Property '%s' conflicts with the reverse relation of '%s.%s'", tf.Name, owner.Name, f.Name),
					})
				}
			}
		}
	}
	return vs
}
