package schema

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is the storage type of a singular field.
type Type uint8

// Storage types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat64
	TypeString
	TypeUUID
	TypeTime
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt16:   "int16",
	TypeInt32:   "int32",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeUUID:    "uuid",
	TypeTime:    "time",
}

// String returns the type name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// Kind returns the field kind of the storage type.
func (t Type) Kind() Kind {
	switch t {
	case TypeBool, TypeInt16, TypeInt32, TypeInt64, TypeFloat64:
		return KindPrimitive
	case TypeString:
		return KindString
	case TypeUUID:
		return KindID
	case TypeTime:
		return KindDateTime
	default:
		return KindInvalid
	}
}

// ParseType parses a type name as written in catalogs.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return TypeBool, nil
	case "int16", "smallint":
		return TypeInt16, nil
	case "int32":
		return TypeInt32, nil
	case "int", "int64", "integer", "bigint":
		return TypeInt64, nil
	case "float", "float64", "double":
		return TypeFloat64, nil
	case "string", "text":
		return TypeString, nil
	case "uuid", "guid", "id":
		return TypeUUID, nil
	case "time", "datetime", "timestamp":
		return TypeTime, nil
	}
	return TypeInvalid, fmt.Errorf("schema: unknown type %q", s)
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// typeOf maps a Go type to a storage type.
func typeOf(rt reflect.Type) Type {
	switch rt {
	case timeType:
		return TypeTime
	case uuidType:
		return TypeUUID
	}
	switch rt.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return TypeInt16
	case reflect.Int32, reflect.Uint16:
		return TypeInt32
	case reflect.Int, reflect.Int64, reflect.Uint32, reflect.Uint, reflect.Uint64:
		return TypeInt64
	case reflect.Float32, reflect.Float64:
		return TypeFloat64
	case reflect.String:
		return TypeString
	}
	return TypeInvalid
}

// timeLayouts are tried in order when parsing time values from text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses s with the layouts accepted for time values.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("schema: cannot parse %q as time", s)
}

// Normalize converts v into the canonical Go value of the storage type:
// bool, int64, float64, string, uuid.UUID or time.Time. Nil values and nil
// pointers normalize to nil.
func (t Type) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		return t.Normalize(rv.Elem().Interface())
	}
	var (
		out any
		err error
	)
	switch t {
	case TypeBool:
		out, err = toBool(v)
	case TypeInt16, TypeInt32, TypeInt64:
		out, err = toInt(v, t)
	case TypeFloat64:
		out, err = toFloat(v)
	case TypeString:
		out, err = toString(v)
	case TypeUUID:
		out, err = toUUID(v)
	case TypeTime:
		out, err = toTime(v)
	default:
		err = fmt.Errorf("schema: cannot store values of %s type", t)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func mismatch(v any, t Type) error {
	return fmt.Errorf("schema: cannot use %v (%T) as %s", v, v, t)
}

func toBool(v any) (any, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case []byte:
		if len(v) == 1 && v[0] <= 1 {
			return v[0] == 1, nil
		}
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int() != 0, nil
	case rv.CanUint():
		return rv.Uint() != 0, nil
	case rv.Kind() == reflect.Bool:
		return rv.Bool(), nil
	}
	return nil, mismatch(v, TypeBool)
}

func toInt(v any, t Type) (any, error) {
	var n int64
	switch x := v.(type) {
	case []byte:
		p, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		if err != nil {
			return nil, mismatch(v, t)
		}
		n = p
	case string:
		p, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, mismatch(v, t)
		}
		n = p
	default:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanInt():
			n = rv.Int()
		case rv.CanUint():
			u := rv.Uint()
			if u > math.MaxInt64 {
				return nil, fmt.Errorf("schema: %d overflows %s", u, t)
			}
			n = int64(u)
		case rv.CanFloat():
			f := rv.Float()
			if f != math.Trunc(f) {
				return nil, mismatch(v, t)
			}
			n = int64(f)
		default:
			return nil, mismatch(v, t)
		}
	}
	switch {
	case t == TypeInt16 && (n < math.MinInt16 || n > math.MaxInt16),
		t == TypeInt32 && (n < math.MinInt32 || n > math.MaxInt32):
		return nil, fmt.Errorf("schema: %d overflows %s", n, t)
	}
	return n, nil
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	}
	return nil, mismatch(v, TypeFloat64)
}

func toString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return nil, mismatch(v, TypeString)
}

func toUUID(v any) (any, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("schema: parse uuid %q: %w", x, err)
		}
		return id, nil
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		id, err := uuid.ParseBytes(bytes.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("schema: parse uuid %q: %w", x, err)
		}
		return id, nil
	}
	return nil, mismatch(v, TypeUUID)
}

func toTime(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return ParseTime(x)
	case []byte:
		return ParseTime(string(x))
	}
	return nil, mismatch(v, TypeTime)
}

// Equal reports whether two normalized values are equal.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if ra := reflect.ValueOf(a); !ra.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

// IsZero reports whether a normalized value is empty for required checks:
// nil, a blank string, the nil UUID or the zero time.
func IsZero(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case uuid.UUID:
		return v == uuid.Nil
	case time.Time:
		return v.IsZero()
	}
	return false
}
