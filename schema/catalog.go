package schema

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the YAML representation of a set of entity schemas.
//
//	entities:
//	  - name: Customer
//	    fields:
//	      - {name: Name, type: string, required: true, length: {min: 1, max: 50}, unique: name}
//	      - {name: Orders, relation: Order, many: true}
//	  - name: Order
//	    fields:
//	      - {name: Code, type: string}
//	      - {name: Customer, relation: Customer}
type Catalog struct {
	Entities []CatalogEntity `yaml:"entities"`
}

// CatalogEntity is one entity in a catalog.
type CatalogEntity struct {
	Name   string         `yaml:"name"`
	Fields []CatalogField `yaml:"fields"`
}

// CatalogField is one field or relation in a catalog entity.
type CatalogField struct {
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type,omitempty"`
	Relation string         `yaml:"relation,omitempty"`
	Many     bool           `yaml:"many,omitempty"`
	Required bool           `yaml:"required,omitempty"`
	Nullable bool           `yaml:"nullable,omitempty"`
	Unique   *string        `yaml:"unique,omitempty"`
	Length   *CatalogLength `yaml:"length,omitempty"`
}

// CatalogLength bounds a string field.
type CatalogLength struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// LoadCatalog decodes a YAML catalog and builds its entity schemas.
func LoadCatalog(r io.Reader) ([]*Entity, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("schema: decode catalog: %w", err)
	}
	return c.Build()
}

// LoadCatalogFile reads a YAML catalog from path.
func LoadCatalogFile(path string) ([]*Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schema: open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Build converts the catalog into entity schemas.
func (c *Catalog) Build() ([]*Entity, error) {
	var (
		entities []*Entity
		errs     []error
	)
	for _, ce := range c.Entities {
		fields := make([]Descriptor, 0, len(ce.Fields))
		for _, cf := range ce.Fields {
			fields = append(fields, cf.field())
		}
		e, err := New(ce.Name, fields...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entities = append(entities, e)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return entities, nil
}

func (cf CatalogField) field() *Field {
	var f *Field
	switch {
	case cf.Relation != "":
		f = NewRelation(cf.Name, cf.Relation, cf.Many)
	default:
		t, err := ParseType(cf.Type)
		if err != nil {
			return &Field{Name: cf.Name, Kind: KindInvalid, TypeName: cf.Type}
		}
		f = NewField(cf.Name, t)
	}
	f.Required = cf.Required
	f.Nullable = cf.Nullable
	if cf.Unique != nil {
		f.SetUnique(*cf.Unique)
	}
	if cf.Length != nil {
		f.Err = f.SetLength(cf.Length.Min, cf.Length.Max)
	}
	return f
}

// MarshalCatalog renders entity schemas back into catalog form.
func MarshalCatalog(entities []*Entity) ([]byte, error) {
	var c Catalog
	for _, e := range entities {
		ce := CatalogEntity{Name: e.Name}
		for _, f := range e.Fields {
			cf := CatalogField{Name: f.Name, Required: f.Required, Nullable: f.Nullable}
			switch {
			case f.IsRelation():
				cf.Relation, cf.Many = f.Target, f.IsCollection()
			default:
				cf.Type = f.Type.String()
			}
			if f.UniqueGroup != "" {
				g := f.UniqueGroup
				cf.Unique = &g
			}
			if f.MaxLen > 0 {
				cf.Length = &CatalogLength{Min: f.MinLen, Max: f.MaxLen}
			}
			ce.Fields = append(ce.Fields, cf)
		}
		c.Entities = append(c.Entities, ce)
	}
	return yaml.Marshal(&c)
}
