package field

import (
	"fmt"

	"github.com/nvt2106/magicstore/schema"
)

// Descriptor is the schema field produced by the builders.
type Descriptor = schema.Field

// Builder configures a singular stored field.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t schema.Type) *Builder {
	return &Builder{desc: schema.NewField(name, t)}
}

// String returns a builder for a string field.
func String(name string) *Builder { return newBuilder(name, schema.TypeString) }

// Text is an alias of String for fields without a length bound.
func Text(name string) *Builder { return newBuilder(name, schema.TypeString) }

// Bool returns a builder for a boolean field.
func Bool(name string) *Builder { return newBuilder(name, schema.TypeBool) }

// Int16 returns a builder for a 16-bit integer field.
func Int16(name string) *Builder { return newBuilder(name, schema.TypeInt16) }

// Int32 returns a builder for a 32-bit integer field.
func Int32(name string) *Builder { return newBuilder(name, schema.TypeInt32) }

// Int64 returns a builder for a 64-bit integer field.
func Int64(name string) *Builder { return newBuilder(name, schema.TypeInt64) }

// Int is an alias of Int64.
func Int(name string) *Builder { return newBuilder(name, schema.TypeInt64) }

// Float returns a builder for a float64 field.
func Float(name string) *Builder { return newBuilder(name, schema.TypeFloat64) }

// Float64 is an alias of Float.
func Float64(name string) *Builder { return newBuilder(name, schema.TypeFloat64) }

// UUID returns a builder for an identifier field.
func UUID(name string) *Builder { return newBuilder(name, schema.TypeUUID) }

// Time returns a builder for a date-time field.
func Time(name string) *Builder { return newBuilder(name, schema.TypeTime) }

// Of returns a builder for a field of the given storage type.
func Of(name string, t schema.Type) *Builder { return newBuilder(name, t) }

// Required marks the field as required.
func (b *Builder) Required() *Builder {
	b.desc.Required = true
	return b
}

// Nullable marks the field as accepting nil values.
func (b *Builder) Nullable() *Builder {
	b.desc.Nullable = true
	return b
}

// Length bounds the rune length of a string field.
func (b *Builder) Length(minLen, maxLen int) *Builder {
	if b.desc.Type != schema.TypeString {
		b.setErr(fmt.Errorf("field: length of %q applies to string fields, not %s", b.desc.Name, b.desc.Type))
		return b
	}
	if err := b.desc.SetLength(minLen, maxLen); err != nil {
		b.setErr(err)
	}
	return b
}

// MaxLen is Length(0, n).
func (b *Builder) MaxLen(n int) *Builder { return b.Length(0, n) }

// Unique adds the field to the default unique group.
func (b *Builder) Unique() *Builder {
	b.desc.SetUnique("")
	return b
}

// UniqueIn adds the field to the named unique group.
func (b *Builder) UniqueIn(group string) *Builder {
	b.desc.SetUnique(group)
	return b
}

// Descriptor implements the schema.Descriptor interface.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

func (b *Builder) setErr(err error) {
	if b.desc.Err == nil {
		b.desc.Err = err
	}
}
