package proxy

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Resolver finds descriptors by schema name. *Registry implements it.
type Resolver interface {
	Lookup(name string) (*Descriptor, bool)
}

// record is the encoded form of an entity. Relations are not encoded; a
// decoded entity loads them again on access.
type record struct {
	Entity   string         `msgpack:"entity"`
	Values   map[string]any `msgpack:"values"`
	Previous map[string]any `msgpack:"previous,omitempty"`
}

// Marshal encodes the slot values and previous-value shadows of e.
func Marshal(e *Entity) ([]byte, error) {
	rec := record{
		Entity:   e.Name(),
		Values:   make(map[string]any, len(e.values)),
		Previous: make(map[string]any, len(e.previous)),
	}
	for i, s := range e.desc.Slots {
		rec.Values[s.Name] = encodeValue(e.values[i])
		rec.Previous[s.Name] = encodeValue(e.previous[i])
	}
	b, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("proxy: marshal %s: %w", e, err)
	}
	return b, nil
}

// Unmarshal decodes an entity encoded by Marshal. The descriptor is resolved
// by the encoded schema name. The entity is returned unbound with no
// relations loaded.
func Unmarshal(data []byte, r Resolver) (*Entity, error) {
	var rec record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("proxy: unmarshal: %w", err)
	}
	d, ok := r.Lookup(rec.Entity)
	if !ok {
		return nil, fmt.Errorf("proxy: unmarshal: unknown schema %q", rec.Entity)
	}
	return decodeRecord(d, &rec)
}

func decodeRecord(d *Descriptor, rec *record) (*Entity, error) {
	e := d.New()
	for i, s := range d.Slots {
		v, err := s.Type.Normalize(rec.Values[s.Name])
		if err != nil {
			return nil, fmt.Errorf("proxy: unmarshal %s.%s: %w", d.Name(), s.Name, err)
		}
		p, err := s.Type.Normalize(rec.Previous[s.Name])
		if err != nil {
			return nil, fmt.Errorf("proxy: unmarshal previous %s.%s: %w", d.Name(), s.Name, err)
		}
		if i == 0 {
			v, p = orNil(v), orNil(p)
		}
		e.values[i], e.previous[i] = v, p
	}
	return e, nil
}

func orNil(v any) any {
	if v == nil {
		return uuid.Nil
	}
	return v
}

// encodeValue converts values without a native msgpack form.
func encodeValue(v any) any {
	if id, ok := v.(uuid.UUID); ok {
		return id.String()
	}
	return v
}

// Lookup implements Resolver for a single descriptor.
func (d *Descriptor) Lookup(name string) (*Descriptor, bool) {
	return d, name == d.Name()
}
