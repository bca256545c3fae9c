package edge

import "github.com/nvt2106/magicstore/schema"

// Descriptor is the schema field produced by the builders.
type Descriptor = schema.Field

// Builder configures a relation field.
type Builder struct {
	desc *Descriptor
}

// To returns a builder for a collection relation to the target entity.
func To(name, target string) *Builder {
	return &Builder{desc: schema.NewRelation(name, target, true)}
}

// Unique makes the relation singular.
func (b *Builder) Unique() *Builder {
	b.desc.Kind = schema.KindSingularRelation
	b.desc.TypeName = b.desc.Target
	return b
}

// Required makes a singular relation required. The check is applied to the
// generated id property.
func (b *Builder) Required() *Builder {
	b.desc.Required = true
	return b
}

// UniqueIn adds the generated id property of a singular relation to the named
// unique group.
func (b *Builder) UniqueIn(group string) *Builder {
	b.desc.SetUnique(group)
	return b
}

// Descriptor implements the schema.Descriptor interface.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}
