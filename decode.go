package magicstore

import (
	"fmt"
	"reflect"

	"github.com/nvt2106/magicstore/proxy"
)

// Decode copies the values of e into dst, a pointer to the struct e's schema
// was declared from. Loaded relations are decoded recursively into new
// structs; unloaded ones are left untouched. A proxy reached twice decodes
// to the same struct.
func (ec *EntityContext) Decode(e *proxy.Entity, dst any) error {
	if e == nil || dst == nil {
		return fmt.Errorf("%w: decode", ErrNilArgument)
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("magicstore: decode %s: expect a non-nil struct pointer, got %T", e.Name(), dst)
	}
	return newDecoder(ec).decode(e, rv)
}

type decoder struct {
	ec   *EntityContext
	seen map[*proxy.Entity]reflect.Value
}

func newDecoder(ec *EntityContext) *decoder {
	return &decoder{ec: ec, seen: make(map[*proxy.Entity]reflect.Value)}
}

func (dec *decoder) decode(e *proxy.Entity, ptr reflect.Value) error {
	d, ok := dec.ec.byType[ptr.Type().Elem()]
	if !ok || d.Name() != e.Name() {
		return fmt.Errorf("%w: cannot decode %s into %s", ErrUnmanagedType, e.Name(), ptr.Type())
	}
	dec.seen[e] = ptr
	sv := ptr.Elem()
	var errs []error
	for _, f := range d.Schema.Fields {
		if f.Index == nil {
			continue
		}
		fv, err := sv.FieldByIndexErr(f.Index)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", e.Name(), f.Name, err))
			continue
		}
		switch {
		case f.IsSingularRelation():
			rel, ok := e.LoadedRelated(f.Name)
			if !ok {
				continue
			}
			if rel == nil {
				fv.SetZero()
				continue
			}
			p, err := dec.target(rel, fv.Type())
			if err != nil {
				errs = append(errs, err)
				continue
			}
			fv.Set(p)
		case f.IsCollection():
			items, ok := e.LoadedCollection(f.Name)
			if !ok {
				continue
			}
			list := reflect.MakeSlice(fv.Type(), 0, len(items))
			for _, item := range items {
				p, err := dec.target(item, fv.Type().Elem())
				if err != nil {
					errs = append(errs, err)
					continue
				}
				list = reflect.Append(list, p)
			}
			fv.Set(list)
		default:
			v, _ := e.Value(f.Name)
			if err := assign(fv, v); err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", e.Name(), f.Name, err))
			}
		}
	}
	return NewAggregateError(errs...)
}

// target returns the struct pointer e decodes to, decoding it on first use.
func (dec *decoder) target(e *proxy.Entity, ptrType reflect.Type) (reflect.Value, error) {
	if p, ok := dec.seen[e]; ok {
		return p, nil
	}
	p := reflect.New(ptrType.Elem())
	if err := dec.decode(e, p); err != nil {
		return reflect.Value{}, err
	}
	return p, nil
}

// assign stores a normalized slot value in a struct field.
func assign(fv reflect.Value, v any) error {
	if v == nil {
		fv.SetZero()
		return nil
	}
	if fv.Kind() == reflect.Pointer {
		p := reflect.New(fv.Type().Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		fv.Set(p)
		return nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(fv.Type()):
		fv.Set(rv)
	case fv.CanInt() && rv.CanInt():
		if fv.OverflowInt(rv.Int()) {
			return fmt.Errorf("value %d overflows %s", rv.Int(), fv.Type())
		}
		fv.SetInt(rv.Int())
	case fv.CanUint() && rv.CanInt():
		if n := rv.Int(); n < 0 || fv.OverflowUint(uint64(n)) {
			return fmt.Errorf("value %d overflows %s", n, fv.Type())
		}
		fv.SetUint(uint64(rv.Int()))
	case fv.CanFloat() && rv.CanFloat():
		if fv.OverflowFloat(rv.Float()) {
			return fmt.Errorf("value %v overflows %s", rv.Float(), fv.Type())
		}
		fv.SetFloat(rv.Float())
	case fv.Kind() == rv.Kind() && rv.Type().ConvertibleTo(fv.Type()):
		fv.Set(rv.Convert(fv.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", v, fv.Type())
	}
	return nil
}
