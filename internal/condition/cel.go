package condition

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/cel-go/cel"
	exprv1 "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// ParseCEL turns a CEL filter such as
//
//	status == "active" && (id > 100 || name.startsWith("A"))
//
// into a condition tree for table. Every schema field is declared as a dyn
// variable; type and option checks are left to Compile.
func ParseCEL(src string, schema Schema, table string) (Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("filter expression is empty")
	}
	fields, ok := schema[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	envOpts := make([]cel.EnvOption, 0, len(fields))
	for _, f := range fields {
		envOpts = append(envOpts, cel.Variable(f.Name, cel.DynType))
	}
	env, err := cel.NewEnv(envOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter: %w", issues.Err())
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to convert AST: %w", err)
	}
	return buildNode(parsed.GetExpr())
}

func buildNode(e *exprv1.Expr) (Node, error) {
	call := e.GetCallExpr()
	if call == nil {
		return nil, fmt.Errorf("filter must be a comparison or a logical combination of comparisons")
	}

	switch call.Function {
	case "_&&_", "_||_":
		comb := And
		if call.Function == "_||_" {
			comb = Or
		}
		g := &Group{Combinator: comb}
		for _, arg := range call.Args {
			child, err := buildNode(arg)
			if err != nil {
				return nil, err
			}
			// a && b && c arrives as nested calls
			if sub, ok := child.(*Group); ok && sub.Combinator == comb {
				g.Children = append(g.Children, sub.Children...)
				continue
			}
			g.Children = append(g.Children, child)
		}
		return g, nil

	case "!_":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("logical NOT expects one argument")
		}
		inner, err := buildNode(call.Args[0])
		if err != nil {
			return nil, err
		}
		p, ok := inner.(*Predicate)
		if ok {
			switch p.Operator {
			case OpInSet:
				p.Operator = OpNotInSet
				return p, nil
			case OpContains:
				p.Operator = OpNotContains
				return p, nil
			}
		}
		return nil, fmt.Errorf("negation is only supported for `in` and contains()")

	case "_==_", "_!=_", "_<_", "_<=_", "_>_", "_>=_":
		return buildComparison(call)

	case "@in":
		return buildIn(call)

	case "contains", "startsWith", "endsWith":
		return buildStringCall(call)

	default:
		return nil, fmt.Errorf("unsupported call expression %q", call.Function)
	}
}

var comparisonOps = map[string]Operator{
	"_==_": OpEquals,
	"_!=_": OpNotEquals,
	"_<_":  OpLessThan,
	"_<=_": OpLessThanOrEqual,
	"_>_":  OpGreaterThan,
	"_>=_": OpGreaterThanOrEqual,
}

// flipped maps an operator to its mirror for `literal op field` forms.
var flipped = map[Operator]Operator{
	OpEquals:             OpEquals,
	OpNotEquals:          OpNotEquals,
	OpLessThan:           OpGreaterThan,
	OpLessThanOrEqual:    OpGreaterThanOrEqual,
	OpGreaterThan:        OpLessThan,
	OpGreaterThanOrEqual: OpLessThanOrEqual,
}

func buildComparison(call *exprv1.Expr_Call) (Node, error) {
	if len(call.Args) != 2 {
		return nil, fmt.Errorf("comparison expects two arguments")
	}
	op := comparisonOps[call.Function]

	left, right := call.Args[0], call.Args[1]
	name, ok := identName(left)
	if !ok {
		name, ok = identName(right)
		if !ok {
			return nil, fmt.Errorf("comparison must reference a field")
		}
		right = left
		op = flipped[op]
	}

	value, err := literalValue(right)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	if value == nil {
		switch op {
		case OpEquals:
			return &Predicate{Field: name, Operator: OpIsNull}, nil
		case OpNotEquals:
			return &Predicate{Field: name, Operator: OpIsNotNull}, nil
		default:
			return nil, fmt.Errorf("field %s: null can only be compared with == or !=", name)
		}
	}
	return &Predicate{Field: name, Operator: op, Value: value}, nil
}

func buildIn(call *exprv1.Expr_Call) (Node, error) {
	if len(call.Args) != 2 {
		return nil, fmt.Errorf("in operator expects two arguments")
	}
	name, ok := identName(call.Args[0])
	if !ok {
		return nil, fmt.Errorf("left side of `in` must be a field")
	}
	list := call.Args[1].GetListExpr()
	if list == nil {
		return nil, fmt.Errorf("field %s: right side of `in` must be a list literal", name)
	}
	values := make([]any, 0, len(list.Elements))
	for _, elem := range list.Elements {
		v, err := literalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		values = append(values, v)
	}
	return &Predicate{Field: name, Operator: OpInSet, Value: values}, nil
}

func buildStringCall(call *exprv1.Expr_Call) (Node, error) {
	if call.Target == nil {
		return nil, fmt.Errorf("%s requires a target", call.Function)
	}
	name, ok := identName(call.Target)
	if !ok {
		return nil, fmt.Errorf("%s must be called on a field", call.Function)
	}
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("%s expects exactly one argument", call.Function)
	}
	v, err := literalValue(call.Args[0])
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	op := OpContains
	switch call.Function {
	case "startsWith":
		op = OpStartsWith
	case "endsWith":
		op = OpEndsWith
	}
	return &Predicate{Field: name, Operator: op, Value: v}, nil
}

func identName(e *exprv1.Expr) (string, bool) {
	ident := e.GetIdentExpr()
	if ident == nil {
		return "", false
	}
	return ident.GetName(), true
}

func literalValue(e *exprv1.Expr) (any, error) {
	if c := e.GetConstExpr(); c != nil {
		switch c.ConstantKind.(type) {
		case *exprv1.Constant_StringValue:
			return c.GetStringValue(), nil
		case *exprv1.Constant_Int64Value:
			return c.GetInt64Value(), nil
		case *exprv1.Constant_Uint64Value:
			u := c.GetUint64Value()
			if u > math.MaxInt64 {
				return nil, fmt.Errorf("integer %du is out of range", u)
			}
			return int64(u), nil
		case *exprv1.Constant_DoubleValue:
			return c.GetDoubleValue(), nil
		case *exprv1.Constant_BoolValue:
			return c.GetBoolValue(), nil
		case *exprv1.Constant_NullValue:
			return nil, nil
		default:
			return nil, fmt.Errorf("unsupported literal")
		}
	}
	// -x where x is a numeric literal
	if call := e.GetCallExpr(); call != nil && call.Function == "-_" && len(call.Args) == 1 {
		v, err := literalValue(call.Args[0])
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
	}
	return nil, fmt.Errorf("expected a literal value")
}
