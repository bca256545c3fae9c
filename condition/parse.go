package condition

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Parse builds conditions from an expression such as
//
//	Code == "A" && (Total > 10 || like(Name, "ab%")) && exists(Region)
//
// Supported forms are comparisons between a field and a literal, "in" and
// "not in" with array literals, like(field, pattern), exists(field),
// notexist(field), "&&"/"and", "||"/"or", and "!"/"not" over any of them.
// The result is always a group; a single comparison yields a one-item AND
// group and an empty expression yields an empty AND group.
func Parse(input string) (*Conditions, error) {
	if strings.TrimSpace(input) == "" {
		return And(), nil
	}
	tree, err := parser.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("condition: parse %q: %w", input, err)
	}
	n, err := convert(tree.Node, false)
	if err != nil {
		return nil, fmt.Errorf("condition: parse %q: %w", input, err)
	}
	if cs, ok := n.(*Conditions); ok {
		return cs, nil
	}
	return And(n), nil
}

// MustParse is like Parse but panics on error.
func MustParse(input string) *Conditions {
	cs, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return cs
}

func convert(n ast.Node, negate bool) (Node, error) {
	switch n := n.(type) {
	case *ast.BinaryNode:
		switch n.Operator {
		case "&&", "and", "||", "or":
			isAnd := n.Operator == "&&" || n.Operator == "and"
			if negate {
				isAnd = !isAnd
			}
			left, err := convert(n.Left, negate)
			if err != nil {
				return nil, err
			}
			right, err := convert(n.Right, negate)
			if err != nil {
				return nil, err
			}
			return merge(isAnd, left, right), nil
		}
		return comparison(n, negate)
	case *ast.UnaryNode:
		if n.Operator == "!" || n.Operator == "not" {
			return convert(n.Node, !negate)
		}
		return nil, fmt.Errorf("unsupported unary operator %q", n.Operator)
	case *ast.CallNode:
		name, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, fmt.Errorf("unsupported call of %T", n.Callee)
		}
		return call(name.Value, n.Arguments, negate)
	case *ast.BuiltinNode:
		return call(n.Name, n.Arguments, negate)
	case *ast.BoolNode:
		if n.Value != negate {
			return And(), nil
		}
		return nil, fmt.Errorf("constant false is not supported")
	}
	return nil, fmt.Errorf("unsupported expression %T", n)
}

// merge joins two nodes, flattening groups of the same kind.
func merge(isAnd bool, nodes ...Node) *Conditions {
	cs := &Conditions{IsAnd: isAnd}
	for _, n := range nodes {
		if g, ok := n.(*Conditions); ok && g.IsAnd == isAnd && g.Len() > 0 {
			cs.Items = append(cs.Items, g.Items...)
			continue
		}
		cs.Items = append(cs.Items, n)
	}
	return cs
}

func comparison(n *ast.BinaryNode, negate bool) (Node, error) {
	op, err := ParseOperator(n.Operator)
	if err != nil || op.IsUnary() || op == OpLike {
		return nil, fmt.Errorf("unsupported operator %q", n.Operator)
	}
	field, valueNode := n.Left, n.Right
	if _, ok := field.(*ast.IdentifierNode); !ok {
		field, valueNode = n.Right, n.Left
		op = op.flip()
	}
	id, ok := field.(*ast.IdentifierNode)
	if !ok {
		return nil, fmt.Errorf("comparison %s needs a field operand", n.Operator)
	}
	value, err := literal(valueNode)
	if err != nil {
		return nil, err
	}
	if (op == OpIn || op == OpNotIn) && !isList(value) {
		return nil, fmt.Errorf("operator %s on %s needs an array", op, id.Value)
	}
	return condition(id.Value, op, value, negate)
}

func call(name string, args []ast.Node, negate bool) (Node, error) {
	var op Operator
	switch strings.ToLower(name) {
	case "like":
		op = OpLike
	case "exists":
		op = OpExists
	case "notexist", "notexists":
		op = OpNotExist
	default:
		return nil, fmt.Errorf("unknown function %q", name)
	}
	want := 1
	if op == OpLike {
		want = 2
	}
	if len(args) != want {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", name, want, len(args))
	}
	id, ok := args[0].(*ast.IdentifierNode)
	if !ok {
		return nil, fmt.Errorf("first argument of %s must be a field", name)
	}
	if op != OpLike {
		return condition(id.Value, op, nil, negate)
	}
	p, ok := args[1].(*ast.StringNode)
	if !ok {
		return nil, fmt.Errorf("pattern of like must be a string")
	}
	return condition(id.Value, op, p.Value, negate)
}

func condition(field string, op Operator, value any, negate bool) (Node, error) {
	if negate {
		neg, ok := op.Negate()
		if !ok {
			return nil, fmt.Errorf("operator %s cannot be negated", op)
		}
		op = neg
	}
	c := &Condition{Field: field, Op: op, Value: value}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func literal(n ast.Node) (any, error) {
	switch n := n.(type) {
	case *ast.StringNode:
		return n.Value, nil
	case *ast.IntegerNode:
		return int64(n.Value), nil
	case *ast.FloatNode:
		return n.Value, nil
	case *ast.BoolNode:
		return n.Value, nil
	case *ast.NilNode:
		return nil, nil
	case *ast.UnaryNode:
		if n.Operator == "-" {
			switch v := n.Node.(type) {
			case *ast.IntegerNode:
				return -int64(v.Value), nil
			case *ast.FloatNode:
				return -v.Value, nil
			}
		}
	case *ast.ArrayNode:
		vs := make([]any, len(n.Nodes))
		for i, item := range n.Nodes {
			v, err := literal(item)
			if err != nil {
				return nil, err
			}
			vs[i] = v
		}
		return vs, nil
	}
	return nil, fmt.Errorf("unsupported literal %T", n)
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}
