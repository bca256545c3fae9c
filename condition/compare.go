package condition

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nvt2106/magicstore/schema"
)

// Compare orders two values and returns -1, 0 or +1.
//
// Two nil values are equal and a present value is greater than nil. Numeric
// values of any width are compared numerically. When exactly one side is a
// string, it is parsed as the type of the other side before comparing. Other
// mixed types, or strings that fail to parse, return ErrIncomparable.
func Compare(a, b any) (int, error) {
	a, b = deref(a), deref(b)
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
		pa, err := parseAs(as, b)
		if err != nil {
			return 0, err
		}
		a = pa
	} else if bs, ok := b.(string); ok {
		pb, err := parseAs(bs, a)
		if err != nil {
			return 0, err
		}
		b = pb
	}
	if na, ok := number(a); ok {
		if nb, ok := number(b); ok {
			return compareNumbers(na, nb), nil
		}
	}
	switch x := a.(type) {
	case bool:
		if y, ok := b.(bool); ok {
			return compareBool(x, y), nil
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return bytes.Compare(x[:], y[:]), nil
		}
	}
	return 0, fmt.Errorf("%w: %T and %T", ErrIncomparable, a, b)
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// num is a widened numeric value.
type num struct {
	i       int64
	f       float64
	isFloat bool
}

func number(v any) (num, bool) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return num{i: rv.Int()}, true
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return num{f: float64(u), isFloat: true}, true
		}
		return num{i: int64(u)}, true
	case rv.CanFloat():
		return num{f: rv.Float(), isFloat: true}, true
	}
	return num{}, false
}

func compareNumbers(a, b num) int {
	if !a.isFloat && !b.isFloat {
		return cmp.Compare(a.i, b.i)
	}
	fa, fb := a.f, b.f
	if !a.isFloat {
		fa = float64(a.i)
	}
	if !b.isFloat {
		fb = float64(b.i)
	}
	return cmp.Compare(fa, fb)
}

// parseAs parses s as the type of like.
func parseAs(s string, like any) (any, error) {
	s = strings.TrimSpace(s)
	var (
		v   any
		err error
	)
	switch like.(type) {
	case bool:
		v, err = strconv.ParseBool(s)
	case time.Time:
		v, err = schema.ParseTime(s)
	case uuid.UUID:
		v, err = uuid.Parse(s)
	default:
		n, ok := number(like)
		if !ok {
			return nil, fmt.Errorf("%w: string and %T", ErrIncomparable, like)
		}
		if n.isFloat {
			v, err = strconv.ParseFloat(s, 64)
			break
		}
		if i, ierr := strconv.ParseInt(s, 10, 64); ierr == nil {
			v = i
			break
		}
		v, err = strconv.ParseFloat(s, 64)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse %q as %T", ErrIncomparable, s, like)
	}
	return v, nil
}
