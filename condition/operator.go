package condition

import (
	"fmt"
	"strings"
)

// Operator is a comparison operator of a Condition.
type Operator uint8

// Operators.
const (
	OpEQ       Operator = iota // ==
	OpNEQ                      // !=
	OpLT                       // <
	OpLTE                      // <=
	OpGT                       // >
	OpGTE                      // >=
	OpIn                       // in
	OpNotIn                    // not in
	OpExists                   // exists
	OpNotExist                 // notexist
	OpLike                     // like
)

var opText = [...]string{
	OpEQ:       "==",
	OpNEQ:      "!=",
	OpLT:       "<",
	OpLTE:      "<=",
	OpGT:       ">",
	OpGTE:      ">=",
	OpIn:       "in",
	OpNotIn:    "not in",
	OpExists:   "exists",
	OpNotExist: "notexist",
	OpLike:     "like",
}

// String returns the operator symbol.
func (o Operator) String() string {
	if o.Valid() {
		return opText[o]
	}
	return fmt.Sprintf("Operator(%d)", o)
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	return int(o) < len(opText)
}

// IsUnary reports whether the operator takes no comparison value.
func (o Operator) IsUnary() bool {
	return o == OpExists || o == OpNotExist
}

// IsOrdering reports whether the operator compares values by order.
func (o Operator) IsOrdering() bool {
	return o <= OpGTE
}

// Implemented reports whether in-memory matching evaluates the operator.
// OpIn and OpNotIn are reserved: they match every record when evaluated in
// memory and are only applied by backends that translate them.
func (o Operator) Implemented() bool {
	return o != OpIn && o != OpNotIn
}

// Negate returns the operator with the opposite result, if any.
func (o Operator) Negate() (Operator, bool) {
	switch o {
	case OpEQ:
		return OpNEQ, true
	case OpNEQ:
		return OpEQ, true
	case OpLT:
		return OpGTE, true
	case OpLTE:
		return OpGT, true
	case OpGT:
		return OpLTE, true
	case OpGTE:
		return OpLT, true
	case OpIn:
		return OpNotIn, true
	case OpNotIn:
		return OpIn, true
	case OpExists:
		return OpNotExist, true
	case OpNotExist:
		return OpExists, true
	}
	return o, false
}

// flip returns the operator for swapped operands (a < b is b > a).
func (o Operator) flip() Operator {
	switch o {
	case OpLT:
		return OpGT
	case OpLTE:
		return OpGTE
	case OpGT:
		return OpLT
	case OpGTE:
		return OpLTE
	}
	return o
}

var opAliases = map[string]Operator{
	"=": OpEQ, "==": OpEQ, "eq": OpEQ, "$eq$": OpEQ,
	"!=": OpNEQ, "<>": OpNEQ, "ne": OpNEQ, "neq": OpNEQ, "$ne$": OpNEQ,
	"<": OpLT, "lt": OpLT, "$lt$": OpLT,
	"<=": OpLTE, "lte": OpLTE, "$lte$": OpLTE,
	">": OpGT, "gt": OpGT, "$gt$": OpGT,
	">=": OpGTE, "gte": OpGTE, "$gte$": OpGTE,
	"in": OpIn, "$in$": OpIn,
	"not in": OpNotIn, "nin": OpNotIn, "$nin$": OpNotIn,
	"exists": OpExists, "is not null": OpExists, "$ex$": OpExists,
	"notexist": OpNotExist, "not exist": OpNotExist, "is null": OpNotExist, "$nex$": OpNotExist,
	"like": OpLike, "$lk$": OpLike,
}

// ParseOperator parses an operator symbol or alias, case-insensitively.
func ParseOperator(s string) (Operator, error) {
	key := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if op, ok := opAliases[key]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("condition: unknown operator %q", s)
}
