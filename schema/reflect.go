package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// TagName is the struct tag read by FromStruct.
//
//	type Order struct {
//		Code     string    `magicstore:"required,length=1:20,unique=code"`
//		Region   string    `magicstore:"unique=code"`
//		Customer *Customer `magicstore:"required"`
//		Items    []*OrderItem
//		Note     string    `magicstore:"-"`
//	}
const TagName = "magicstore"

// FromStruct derives an entity schema from a struct type. v may be a struct
// value, a pointer to a struct, or a reflect.Type of either.
//
// Exported fields map to kinds by type: bool, integers and floats are
// primitives, string is String, uuid.UUID is Id and time.Time is DateTime.
// Pointers to those types are nullable. A pointer to another struct is a
// singular relation and a slice of struct pointers is a collection relation;
// relations declared by value are recorded as non-virtual so that Validate
// rejects them. Any other type is recorded as invalid.
func FromStruct(v any) (*Entity, error) {
	rt, ok := v.(reflect.Type)
	if !ok {
		rt = reflect.TypeOf(v)
	}
	if rt == nil {
		return nil, fmt.Errorf("schema: FromStruct called with nil")
	}
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: FromStruct expects a struct, got %s", rt)
	}
	var fields []Descriptor
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		tag, hasTag := sf.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}
		f := structField(sf)
		if hasTag {
			if err := applyTag(f, tag); err != nil {
				f.Err = err
			}
		}
		fields = append(fields, f)
	}
	e, err := New(rt.Name(), fields...)
	if err != nil {
		return nil, err
	}
	e.GoType = rt
	return e, nil
}

// MustFromStruct is like FromStruct but panics on error.
func MustFromStruct(v any) *Entity {
	e, err := FromStruct(v)
	if err != nil {
		panic(err)
	}
	return e
}

func structField(sf reflect.StructField) *Field {
	rt := sf.Type
	if t := typeOf(rt); t != TypeInvalid {
		f := NewField(sf.Name, t)
		f.Index = sf.Index
		return f
	}
	switch {
	case rt.Kind() == reflect.Pointer && typeOf(rt.Elem()) != TypeInvalid:
		f := NewField(sf.Name, typeOf(rt.Elem()))
		f.Nullable = true
		f.Index = sf.Index
		return f
	case isEntityStruct(rt):
		f := NewRelation(sf.Name, rt.Name(), false)
		f.Virtual = false
		f.Index = sf.Index
		return f
	case rt.Kind() == reflect.Pointer && isEntityStruct(rt.Elem()):
		f := NewRelation(sf.Name, rt.Elem().Name(), false)
		f.Index = sf.Index
		return f
	case rt.Kind() == reflect.Slice && isEntityStruct(rt.Elem()):
		f := NewRelation(sf.Name, rt.Elem().Name(), true)
		f.Virtual = false
		f.Index = sf.Index
		return f
	case rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.Pointer && isEntityStruct(rt.Elem().Elem()):
		f := NewRelation(sf.Name, rt.Elem().Elem().Name(), true)
		f.Index = sf.Index
		return f
	}
	return &Field{Name: sf.Name, Kind: KindInvalid, TypeName: rt.String(), Index: sf.Index}
}

func isEntityStruct(rt reflect.Type) bool {
	return rt.Kind() == reflect.Struct && rt != timeType && rt.Name() != ""
}

// applyTag parses options such as "required,length=1:50,unique=grp".
func applyTag(f *Field, tag string) error {
	for _, opt := range strings.Split(tag, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "":
		case "required":
			f.Required = true
		case "unique":
			f.SetUnique(value)
		case "length":
			lo, hi, ok := strings.Cut(value, ":")
			if !ok {
				return fmt.Errorf("schema: length of %q must be written as min:max", f.Name)
			}
			minLen, err := strconv.Atoi(lo)
			if err != nil {
				return fmt.Errorf("schema: min length of %q: %w", f.Name, err)
			}
			maxLen, err := strconv.Atoi(hi)
			if err != nil {
				return fmt.Errorf("schema: max length of %q: %w", f.Name, err)
			}
			if err := f.SetLength(minLen, maxLen); err != nil {
				return err
			}
		default:
			return fmt.Errorf("schema: unknown option %q on field %q", key, f.Name)
		}
	}
	return nil
}
