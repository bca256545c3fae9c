package condition

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nvt2106/magicstore/internal/ident"
)

var (
	// ErrUnknownField is returned when a record has no value for a condition field.
	ErrUnknownField = errors.New("condition: unknown field")
	// ErrIncomparable is returned when two values cannot be ordered.
	ErrIncomparable = errors.New("condition: incomparable values")
	// ErrLikeOperand is returned when a like operand is not a string.
	ErrLikeOperand = errors.New("condition: like operands must be strings")
)

// Record exposes field values by name.
type Record interface {
	Value(name string) (any, bool)
}

// Map is a Record backed by a map.
type Map map[string]any

// Value implements the Record interface.
func (m Map) Value(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Node is a Condition or a Conditions group.
type Node interface {
	// Match reports whether the record satisfies the node.
	Match(Record) (bool, error)
	// Validate checks field names and operator arity.
	Validate() error
	fmt.Stringer
	node()
}

// Condition compares one record field with a value.
type Condition struct {
	Field string
	Op    Operator
	// Value is ignored by OpExists and OpNotExist.
	Value any
}

// New returns a validated condition.
func New(field string, op Operator, value any) (*Condition, error) {
	c := &Condition{Field: field, Op: op, Value: value}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewUnary returns a validated condition that takes no value. The operator
// must be OpExists or OpNotExist.
func NewUnary(field string, op Operator) (*Condition, error) {
	if !op.IsUnary() {
		return nil, fmt.Errorf("condition: operator %s requires a value", op)
	}
	return New(field, op, nil)
}

// FieldEQ returns a condition for field == v.
func FieldEQ(field string, v any) *Condition { return &Condition{field, OpEQ, v} }

// FieldNEQ returns a condition for field != v.
func FieldNEQ(field string, v any) *Condition { return &Condition{field, OpNEQ, v} }

// FieldLT returns a condition for field < v.
func FieldLT(field string, v any) *Condition { return &Condition{field, OpLT, v} }

// FieldLTE returns a condition for field <= v.
func FieldLTE(field string, v any) *Condition { return &Condition{field, OpLTE, v} }

// FieldGT returns a condition for field > v.
func FieldGT(field string, v any) *Condition { return &Condition{field, OpGT, v} }

// FieldGTE returns a condition for field >= v.
func FieldGTE(field string, v any) *Condition { return &Condition{field, OpGTE, v} }

// FieldIn returns a condition for field in vs.
func FieldIn(field string, vs ...any) *Condition { return &Condition{field, OpIn, vs} }

// FieldNotIn returns a condition for field not in vs.
func FieldNotIn(field string, vs ...any) *Condition { return &Condition{field, OpNotIn, vs} }

// FieldExists returns a condition matching present values.
func FieldExists(field string) *Condition { return &Condition{Field: field, Op: OpExists} }

// FieldNotExist returns a condition matching absent values.
func FieldNotExist(field string) *Condition { return &Condition{Field: field, Op: OpNotExist} }

// FieldLike returns a condition matching a like pattern.
func FieldLike(field, pattern string) *Condition { return &Condition{field, OpLike, pattern} }

func (*Condition) node() {}

// Validate implements the Node interface.
func (c *Condition) Validate() error {
	switch {
	case !ident.Valid(c.Field):
		return fmt.Errorf("condition: field name %q must be a valid identifier", c.Field)
	case !c.Op.Valid():
		return fmt.Errorf("condition: invalid operator %d on %s", c.Op, c.Field)
	case c.Op == OpLike:
		if _, ok := c.Value.(string); !ok {
			return fmt.Errorf("%w: pattern of %s is %T", ErrLikeOperand, c.Field, c.Value)
		}
	case c.Op == OpIn || c.Op == OpNotIn:
		if rv := reflect.ValueOf(c.Value); rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("condition: operator %s on %s requires a list, got %T", c.Op, c.Field, c.Value)
		}
	}
	return nil
}

// Match implements the Node interface.
func (c *Condition) Match(r Record) (bool, error) {
	v, ok := r.Value(c.Field)
	if !ok {
		return false, fmt.Errorf("%w %q", ErrUnknownField, c.Field)
	}
	return Eval(c.Op, v, c.Value)
}

// Eval applies op to a record value and a comparison value.
func Eval(op Operator, v, with any) (bool, error) {
	switch op {
	case OpEQ, OpNEQ, OpLT, OpLTE, OpGT, OpGTE:
		cmp, err := Compare(v, with)
		if err != nil {
			return false, err
		}
		return ordered(op, cmp), nil
	case OpExists:
		return Present(v), nil
	case OpNotExist:
		return !Present(v), nil
	case OpLike:
		if v == nil {
			return false, nil
		}
		s, ok := v.(string)
		p, pok := with.(string)
		if !ok || !pok {
			return false, fmt.Errorf("%w: got %T and %T", ErrLikeOperand, v, with)
		}
		return Like(s, p), nil
	}
	return true, nil
}

func ordered(op Operator, cmp int) bool {
	switch op {
	case OpEQ:
		return cmp == 0
	case OpNEQ:
		return cmp != 0
	case OpLT:
		return cmp < 0
	case OpLTE:
		return cmp <= 0
	case OpGT:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// Present reports whether v counts as an existing value. Strings are absent
// when empty or whitespace only; other values are absent only when nil.
func Present(v any) bool {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return v != nil
}

// String returns a textual representation of the condition.
func (c *Condition) String() string {
	switch {
	case c.Op.IsUnary():
		return fmt.Sprintf("%s(%s)", c.Op, c.Field)
	case c.Op == OpLike:
		return fmt.Sprintf("like(%s, %s)", c.Field, formatValue(c.Value))
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, formatValue(c.Value))
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	case time.Time:
		return strconv.Quote(v.Format(time.RFC3339Nano))
	case uuid.UUID:
		return strconv.Quote(v.String())
	case []byte:
		return strconv.Quote(string(v))
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = formatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(items, ",") + "]"
	}
	return fmt.Sprint(v)
}

// Conditions is an ordered AND or OR group of nodes.
type Conditions struct {
	IsAnd bool
	Items []Node
}

// And returns an AND group of the given nodes. Nil nodes are skipped.
func And(nodes ...Node) *Conditions {
	return (&Conditions{IsAnd: true}).Add(nodes...)
}

// Or returns an OR group of the given nodes. Nil nodes are skipped.
func Or(nodes ...Node) *Conditions {
	return (&Conditions{}).Add(nodes...)
}

// Add appends nodes to the group. Nil nodes are skipped.
func (cs *Conditions) Add(nodes ...Node) *Conditions {
	for _, n := range nodes {
		if n == nil || isNilNode(n) {
			continue
		}
		cs.Items = append(cs.Items, n)
	}
	return cs
}

func isNilNode(n Node) bool {
	switch n := n.(type) {
	case *Condition:
		return n == nil
	case *Conditions:
		return n == nil
	}
	return false
}

// Len returns the number of direct children.
func (cs *Conditions) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.Items)
}

func (*Conditions) node() {}

// Validate implements the Node interface.
func (cs *Conditions) Validate() error {
	if cs == nil {
		return nil
	}
	var errs []error
	for _, n := range cs.Items {
		if err := n.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Match evaluates the children in order. AND groups stop at the first child
// that does not match and OR groups stop at the first child that does.
// A nil or empty group of either kind matches every record.
func (cs *Conditions) Match(r Record) (bool, error) {
	if cs.Len() == 0 {
		return true, nil
	}
	for _, n := range cs.Items {
		ok, err := n.Match(r)
		if err != nil {
			return false, err
		}
		if cs.IsAnd && !ok {
			return false, nil
		}
		if !cs.IsAnd && ok {
			return true, nil
		}
	}
	return cs.IsAnd, nil
}

// String returns a textual representation of the group.
func (cs *Conditions) String() string {
	if cs.Len() == 0 {
		return "true"
	}
	sep := " || "
	if cs.IsAnd {
		sep = " && "
	}
	items := make([]string, len(cs.Items))
	for i, n := range cs.Items {
		items[i] = n.String()
	}
	return "(" + strings.Join(items, sep) + ")"
}

// Walk calls fn for every condition in the tree, depth first.
func Walk(n Node, fn func(*Condition)) {
	switch n := n.(type) {
	case *Condition:
		if n != nil {
			fn(n)
		}
	case *Conditions:
		if n == nil {
			return
		}
		for _, c := range n.Items {
			Walk(c, fn)
		}
	}
}

// Unimplemented returns the conditions whose operators are not evaluated in memory.
func Unimplemented(n Node) []*Condition {
	var cs []*Condition
	Walk(n, func(c *Condition) {
		if !c.Op.Implemented() {
			cs = append(cs, c)
		}
	})
	return cs
}
