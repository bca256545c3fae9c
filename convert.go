package magicstore

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/nvt2106/magicstore/proxy"
)

// converter turns a graph of plain structs and proxies into a graph of
// proxies bound to an entity context. Every input object is converted once,
// so cycles in the input graph map to cycles in the result.
type converter struct {
	ec         *EntityContext
	processing map[any]*proxy.Entity
	processed  map[any]*proxy.Entity
}

func newConverter(ec *EntityContext) *converter {
	return &converter{
		ec:         ec,
		processing: make(map[any]*proxy.Entity),
		processed:  make(map[any]*proxy.Entity),
	}
}

// Convert returns v as a proxy. v is either a proxy of a registered schema
// or a pointer to a struct registered with schema.FromStruct. Converting a
// struct assigns the result a new id and marks all its relations loaded.
func (ec *EntityContext) Convert(v any) (*proxy.Entity, error) {
	return newConverter(ec).convert(v)
}

func (c *converter) convert(v any) (*proxy.Entity, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: entity", ErrNilArgument)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("%w: %T", ErrUnmanagedType, v)
	}
	if rv.IsNil() {
		return nil, fmt.Errorf("%w: entity", ErrNilArgument)
	}
	if e, ok := c.processed[v]; ok {
		return e, nil
	}
	if e, ok := c.processing[v]; ok {
		return e, nil
	}
	if e, ok := v.(*proxy.Entity); ok {
		return c.fromProxy(e)
	}
	return c.fromStruct(v, rv.Elem())
}

func (c *converter) fromProxy(e *proxy.Entity) (*proxy.Entity, error) {
	if _, err := c.ec.managed(e); err != nil {
		return nil, err
	}
	if e.Loader() == nil {
		e.Bind(c.ec)
	}
	c.processing[e] = e
	for _, r := range e.Descriptor().Relations {
		if !r.Many {
			rel, ok := e.LoadedRelated(r.Name)
			if !ok || rel == nil {
				continue
			}
			if _, err := c.convert(rel); err != nil {
				return nil, err
			}
			// Keep the id slot in step with the loaded entity.
			if err := e.SetRelated(r.Name, rel); err != nil {
				return nil, err
			}
			continue
		}
		items, ok := e.LoadedCollection(r.Name)
		if !ok {
			continue
		}
		for _, item := range items {
			if _, err := c.convert(item); err != nil {
				return nil, err
			}
		}
		if err := e.SetCollection(r.Name, items); err != nil {
			return nil, err
		}
	}
	delete(c.processing, e)
	c.processed[e] = e
	return e, nil
}

func (c *converter) fromStruct(v any, sv reflect.Value) (*proxy.Entity, error) {
	d, ok := c.ec.byType[sv.Type()]
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnmanagedType, v)
	}
	e := d.New()
	e.SetID(uuid.New())
	e.Bind(c.ec)
	_ = e.MarkLoaded()
	c.processing[v] = e

	for _, f := range d.Schema.Fields {
		if f.IsRelation() || f.Index == nil {
			continue
		}
		fv, err := sv.FieldByIndexErr(f.Index)
		if err != nil {
			return nil, fmt.Errorf("magicstore: convert %s.%s: %w", d.Name(), f.Name, err)
		}
		if err := e.Set(f.Name, fieldValue(fv)); err != nil {
			return nil, err
		}
	}
	for _, f := range d.Schema.Relations() {
		fv, err := sv.FieldByIndexErr(f.Index)
		if err != nil {
			return nil, fmt.Errorf("magicstore: convert %s.%s: %w", d.Name(), f.Name, err)
		}
		if f.IsSingularRelation() {
			if fv.IsNil() {
				continue
			}
			rel, err := c.convert(fv.Interface())
			if err != nil {
				return nil, err
			}
			if err := e.SetRelated(f.Name, rel); err != nil {
				return nil, err
			}
			continue
		}
		items := make([]*proxy.Entity, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			item := fv.Index(i)
			if item.IsNil() {
				continue
			}
			pe, err := c.convert(item.Interface())
			if err != nil {
				return nil, err
			}
			items = append(items, pe)
		}
		if err := e.SetCollection(f.Name, items); err != nil {
			return nil, err
		}
	}
	delete(c.processing, v)
	c.processed[v] = e
	return e, nil
}

// fieldValue returns the value of a struct field as stored in a slot.
// Nil pointers map to nil.
func fieldValue(fv reflect.Value) any {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	return fv.Interface()
}
