package gen

import (
	"fmt"
	"unicode"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/nvt2106/magicstore/schema"
)

const (
	proxyPkg     = "github.com/nvt2106/magicstore/proxy"
	contextPkg   = "github.com/nvt2106/magicstore"
	conditionPkg = "github.com/nvt2106/magicstore/condition"
	schemaPkg    = "github.com/nvt2106/magicstore/schema"
	uuidPkg      = "github.com/google/uuid"
)

// Type is a schema prepared for generation.
type Type struct {
	*schema.Entity
}

// locals are the identifiers declared inside generated methods.
var locals = map[string]bool{"e": true, "v": true, "x": true, "i": true}

// Receiver returns the receiver name of the wrapper methods.
func (t *Type) Receiver() string {
	r := string(unicode.ToLower([]rune(t.Name)[0]))
	if locals[r] {
		return "_" + r
	}
	return r
}

// Plural returns the plural of the schema name.
func (t *Type) Plural() string {
	p := inflect.Pluralize(t.Name)
	if p == t.Name {
		return t.Name + "List"
	}
	return p
}

// File returns the name of the file generated for the schema.
func (t *Type) File() string {
	return inflect.Underscore(t.Name) + ".go"
}

// SchemaConst returns the name of the constant holding the schema name.
func (t *Type) SchemaConst() string { return t.Name + "Schema" }

// FieldConst returns the name of the constant holding a field name.
func (t *Type) FieldConst(name string) string { return t.Name + "Field" + name }

// check rejects schemas whose accessors would collide with the embedded proxy.
func (t *Type) check() error {
	if t.Name == "" {
		return NewGenerationError("parse", "", "schema without name", nil)
	}
	for _, f := range t.Fields {
		switch {
		case f.Name == "Entity":
			return NewGenerationError("parse", t.File(), fmt.Sprintf("field %s.%s collides with the embedded proxy", t.Name, f.Name), nil)
		case f.IsSingularRelation() && t.hasField(f.Name+"ID"):
			return NewGenerationError("parse", t.File(), fmt.Sprintf("relation %s.%s collides with field %sID", t.Name, f.Name, f.Name), nil)
		case !f.IsRelation() && goType(f.Type) == nil:
			return NewGenerationError("parse", t.File(), fmt.Sprintf("field %s.%s has unsupported type %s", t.Name, f.Name, f.Type), nil)
		}
	}
	return nil
}

func (t *Type) hasField(name string) bool {
	_, ok := t.Field(name)
	return ok
}

// goType returns the Go type of a storage type.
func goType(t schema.Type) *jen.Statement {
	switch t {
	case schema.TypeBool:
		return jen.Bool()
	case schema.TypeInt16:
		return jen.Int16()
	case schema.TypeInt32:
		return jen.Int32()
	case schema.TypeInt64:
		return jen.Int64()
	case schema.TypeFloat64:
		return jen.Float64()
	case schema.TypeString:
		return jen.String()
	case schema.TypeUUID:
		return jen.Qual(uuidPkg, "UUID")
	case schema.TypeTime:
		return jen.Qual("time", "Time")
	}
	return nil
}
