package condition

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Matcher evaluates a compiled tree against in-memory records using an
// expr-lang program. Missing or null fields never satisfy a comparison, which
// mirrors SQL NULL semantics.
type Matcher struct {
	source  string
	program *vm.Program
	fields  []Field
	values  map[string]any
}

// NewMatcher validates tree the same way Compile does and builds the program.
// Predicate values are bound through the environment rather than written into
// the expression, so integers keep int64 precision and dates stay time.Time.
func NewMatcher(tree Node, schema Schema, table string, options FieldOptions, opts ...CompileOption) (*Matcher, error) {
	if _, err := Compile(tree, schema, table, options, opts...); err != nil {
		return nil, err
	}

	fields := schema[table]
	w := &exprWriter{
		fields: make(map[string]Field, len(fields)),
		values: make(map[string]any),
	}
	for _, f := range fields {
		w.fields[f.Name] = f
	}
	if err := w.node(tree); err != nil {
		return nil, err
	}
	source := w.b.String()

	prog, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile matcher: %w", err)
	}
	return &Matcher{source: source, program: prog, fields: fields, values: w.values}, nil
}

// Source returns the generated expr-lang expression.
func (m *Matcher) Source() string {
	return m.source
}

// Match reports whether record satisfies the condition.
func (m *Matcher) Match(record map[string]any) (bool, error) {
	env := make(map[string]any, len(m.fields)+len(m.values))
	for k, v := range m.values {
		env[k] = v
	}
	for _, f := range m.fields {
		v, ok := record[f.Name]
		if !ok || v == nil {
			env[f.Name] = nil
			continue
		}
		nv, err := envValue(f, v)
		if err != nil {
			return false, err
		}
		env[f.Name] = nv
	}

	result, err := expr.Run(m.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition: %w", err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition did not return bool")
	}
	return matched, nil
}

// envValue converts a value into the representation the program compares:
// integral numbers as int64, other numbers as float64, dates as time.Time.
func envValue(f Field, v any) (any, error) {
	switch f.Type {
	case TypeNumber:
		n, ok := numberOf(v)
		if !ok {
			return nil, fmt.Errorf("field %s: expected number, got %s", f.Name, describe(v))
		}
		return n, nil
	case TypeDate:
		t, err := dateOf(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return t, nil
	default:
		return v, nil
	}
}

func numberOf(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	return toFloat64(v)
}

func dateOf(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		return parseDate(d)
	}
	return time.Time{}, fmt.Errorf("expected date, got %s", describe(v))
}

// exprWriter renders a tree as an expr-lang expression. Fields and bound
// values are both read through $env; value keys start with "#" so they can
// never collide with a field identifier.
type exprWriter struct {
	b      strings.Builder
	fields map[string]Field
	values map[string]any
}

func (w *exprWriter) node(n Node) error {
	switch v := n.(type) {
	case *Group:
		join := " and "
		if v.Combinator == Or {
			join = " or "
		}
		w.b.WriteString("(")
		for i, c := range v.Children {
			if i > 0 {
				w.b.WriteString(join)
			}
			if err := w.node(c); err != nil {
				return err
			}
		}
		w.b.WriteString(")")
	case *Predicate:
		return w.predicate(v, w.fields[v.Field])
	}
	return nil
}

func (w *exprWriter) bind(f Field, v any) (string, error) {
	bound, err := envValue(f, bindValue(v))
	if err != nil {
		return "", err
	}
	key := "#" + strconv.Itoa(len(w.values))
	w.values[key] = bound
	return fmt.Sprintf("$env[%s]", strconv.Quote(key)), nil
}

func (w *exprWriter) predicate(p *Predicate, f Field) error {
	name := fmt.Sprintf("$env[%s]", strconv.Quote(p.Field))
	switch p.Operator {
	case OpIsNull:
		fmt.Fprintf(&w.b, "(%s == nil)", name)
		return nil
	case OpIsNotNull:
		fmt.Fprintf(&w.b, "(%s != nil)", name)
		return nil
	}

	var cmp string
	switch p.Operator {
	case OpBetween:
		pair, _ := toAnySlice(p.Value)
		lo, err := w.bind(f, pair[0])
		if err != nil {
			return err
		}
		hi, err := w.bind(f, pair[1])
		if err != nil {
			return err
		}
		cmp = fmt.Sprintf("%s >= %s and %s <= %s", name, lo, name, hi)
	case OpInSet, OpNotInSet:
		values, _ := toAnySlice(p.Value)
		refs := make([]string, len(values))
		for i, v := range values {
			ref, err := w.bind(f, v)
			if err != nil {
				return err
			}
			refs[i] = ref
		}
		in := "in"
		if p.Operator == OpNotInSet {
			in = "not in"
		}
		cmp = fmt.Sprintf("%s %s [%s]", name, in, strings.Join(refs, ", "))
	default:
		ref, err := w.bind(f, p.Value)
		if err != nil {
			return err
		}
		switch p.Operator {
		case OpEquals:
			cmp = fmt.Sprintf("%s == %s", name, ref)
		case OpNotEquals:
			cmp = fmt.Sprintf("%s != %s", name, ref)
		case OpGreaterThan:
			cmp = fmt.Sprintf("%s > %s", name, ref)
		case OpGreaterThanOrEqual:
			cmp = fmt.Sprintf("%s >= %s", name, ref)
		case OpLessThan:
			cmp = fmt.Sprintf("%s < %s", name, ref)
		case OpLessThanOrEqual:
			cmp = fmt.Sprintf("%s <= %s", name, ref)
		case OpContains:
			cmp = fmt.Sprintf("%s contains %s", name, ref)
		case OpNotContains:
			cmp = fmt.Sprintf("not (%s contains %s)", name, ref)
		case OpStartsWith:
			cmp = fmt.Sprintf("%s startsWith %s", name, ref)
		case OpEndsWith:
			cmp = fmt.Sprintf("%s endsWith %s", name, ref)
		default:
			return fmt.Errorf("matcher: unsupported operator %s", p.Operator)
		}
	}
	fmt.Fprintf(&w.b, "(%s != nil and (%s))", name, cmp)
	return nil
}
