package condition

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultMaxDepth    = 16
	DefaultMaxChildren = 64
)

// Compiled is the artifact handed to the submission callback.
type Compiled struct {
	RawData Node
	JSON    json.RawMessage
	SQL     string
	Params  []any
}

// MarshalJSON renders rawData as a tree rather than as a Go interface value.
func (c *Compiled) MarshalJSON() ([]byte, error) {
	raw, err := encodeNode(c.RawData)
	if err != nil {
		return nil, err
	}
	params := c.Params
	if params == nil {
		params = []any{}
	}
	return json.Marshal(struct {
		RawData any             `json:"rawData"`
		JSON    json.RawMessage `json:"json"`
		SQL     string          `json:"sql"`
		Params  []any           `json:"params"`
	}{raw, c.JSON, c.SQL, params})
}

type compileConfig struct {
	newParams   func() ParamBuilder
	allowGroups bool
	maxDepth    int
	maxChildren int
}

// CompileOption customizes a single Compile call.
type CompileOption func(*compileConfig)

// WithParamBuilder sets the placeholder style. The factory is called once per
// compilation.
func WithParamBuilder(factory func() ParamBuilder) CompileOption {
	return func(cfg *compileConfig) {
		if factory != nil {
			cfg.newParams = factory
		}
	}
}

// AllowGroups toggles whether Group nodes are accepted.
func AllowGroups(allow bool) CompileOption {
	return func(cfg *compileConfig) {
		cfg.allowGroups = allow
	}
}

// WithLimits caps group nesting and children per group. Zero keeps the default.
func WithLimits(maxDepth, maxChildren int) CompileOption {
	return func(cfg *compileConfig) {
		if maxDepth > 0 {
			cfg.maxDepth = maxDepth
		}
		if maxChildren > 0 {
			cfg.maxChildren = maxChildren
		}
	}
}

// Compile validates tree against the table's schema and field options and
// renders it to JSON and a parameterized WHERE fragment. Nothing is returned
// unless the whole tree is valid.
func Compile(tree Node, schema Schema, table string, options FieldOptions, opts ...CompileOption) (*Compiled, error) {
	cfg := &compileConfig{
		newParams:   NewQuestionParams,
		allowGroups: true,
		maxDepth:    DefaultMaxDepth,
		maxChildren: DefaultMaxChildren,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if !schema.HasTable(table) {
		return nil, newError(KindSchemaViolation, "$", tree, "unknown table %q", table)
	}

	r := &renderer{
		cfg:     cfg,
		schema:  schema,
		table:   table,
		options: options,
		pb:      cfg.newParams(),
	}
	sql, err := r.render(tree, "$", 0)
	if err != nil {
		return nil, err
	}

	raw := Clone(tree)
	data, err := MarshalNode(raw)
	if err != nil {
		return nil, newError(KindStructureViolation, "$", tree, "encode: %v", err)
	}

	return &Compiled{
		RawData: raw,
		JSON:    data,
		SQL:     sql,
		Params:  r.pb.Params(),
	}, nil
}

type renderer struct {
	cfg     *compileConfig
	schema  Schema
	table   string
	options FieldOptions
	pb      ParamBuilder
}

func (r *renderer) render(n Node, path string, depth int) (string, error) {
	switch v := n.(type) {
	case *Predicate:
		if v == nil {
			break
		}
		return r.renderPredicate(v, path)
	case *Group:
		if v == nil {
			break
		}
		return r.renderGroup(v, path, depth+1)
	}
	return "", newError(KindStructureViolation, path, n, "missing condition")
}

func (r *renderer) renderGroup(g *Group, path string, depth int) (string, error) {
	if !r.cfg.allowGroups {
		return "", newError(KindStructureViolation, path, g, "combining conditions is disabled")
	}
	if depth > r.cfg.maxDepth {
		return "", newError(KindStructureViolation, path, g, "groups nested deeper than %d", r.cfg.maxDepth)
	}
	if g.Combinator != And && g.Combinator != Or {
		return "", newError(KindStructureViolation, path, g, "unknown combinator %q", g.Combinator)
	}
	if len(g.Children) == 0 {
		return "", newError(KindStructureViolation, path, g, "group has no conditions")
	}
	if len(g.Children) > r.cfg.maxChildren {
		return "", newError(KindStructureViolation, path, g, "group has %d conditions, limit is %d", len(g.Children), r.cfg.maxChildren)
	}

	parts := make([]string, len(g.Children))
	for i, child := range g.Children {
		sql, err := r.render(child, fmt.Sprintf("%s.children[%d]", path, i), depth)
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	return "(" + strings.Join(parts, " "+string(g.Combinator)+" ") + ")", nil
}

func (r *renderer) renderPredicate(p *Predicate, path string) (string, error) {
	field := r.schema.Field(r.table, p.Field)
	if field == nil {
		return "", newError(KindSchemaViolation, path, p, "unknown field %q in table %q", p.Field, r.table)
	}
	if !p.Operator.Known() {
		return "", newError(KindInvalidOperator, path, p, "unknown operator %q", p.Operator)
	}
	info := operators[p.Operator]
	if !p.Operator.Supports(field.Type) {
		return "", newError(KindInvalidOperator, path, p, "operator %s is not supported for %s field %s", p.Operator, field.Type, field.Name)
	}

	switch info.arity {
	case arityNone:
		if p.Value != nil {
			return "", newError(KindTypeMismatch, path, p, "operator %s takes no value", p.Operator)
		}
		return fmt.Sprintf("%s %s", field.Name, info.sql), nil

	case arityScalar:
		if p.Value == nil {
			return "", newError(KindTypeMismatch, path, p, "operator %s requires a value", p.Operator)
		}
		if err := r.checkMember(field, p, path, p.Value); err != nil {
			return "", err
		}
		if isLike(p.Operator) {
			pattern := likePattern(p.Operator, p.Value.(string))
			return fmt.Sprintf(`%s %s %s ESCAPE '\'`, field.Name, info.sql, r.pb.Add(pattern)), nil
		}
		return fmt.Sprintf("%s %s %s", field.Name, info.sql, r.pb.Add(bindValue(p.Value))), nil

	case arityList:
		values, ok := toAnySlice(p.Value)
		if !ok || len(values) == 0 {
			return "", newError(KindTypeMismatch, path, p, "operator %s requires a non-empty list", p.Operator)
		}
		for _, v := range values {
			if err := r.checkMember(field, p, path, v); err != nil {
				return "", err
			}
		}
		phs := make([]string, len(values))
		for i, v := range values {
			phs[i] = r.pb.Add(bindValue(v))
		}
		return fmt.Sprintf("%s %s (%s)", field.Name, info.sql, strings.Join(phs, ", ")), nil

	case arityPair:
		values, ok := toAnySlice(p.Value)
		if !ok || len(values) != 2 {
			return "", newError(KindTypeMismatch, path, p, "operator %s requires exactly two values", p.Operator)
		}
		for _, v := range values {
			if err := r.checkMember(field, p, path, v); err != nil {
				return "", err
			}
		}
		lo := r.pb.Add(bindValue(values[0]))
		hi := r.pb.Add(bindValue(values[1]))
		return fmt.Sprintf("%s BETWEEN %s AND %s", field.Name, lo, hi), nil
	}

	return "", newError(KindInvalidOperator, path, p, "unknown operator %q", p.Operator)
}

// checkMember validates one value against the field type and, when the field is
// constrained, its option set.
func (r *renderer) checkMember(field *Field, p *Predicate, path string, v any) error {
	if v == nil {
		return newError(KindTypeMismatch, path, p, "null is not a valid %s value for %s", field.Type, field.Name)
	}
	if err := checkValue(field.Type, v); err != nil {
		return newError(KindTypeMismatch, path, p, "field %s: %v", field.Name, err)
	}
	if set, ok := r.options.Lookup(r.table, field.Name); ok {
		if key := valueKey(v); !set.Contains(key) {
			return newError(KindConstraintViolation, path, p, "%q is not an allowed value for %s.%s (allowed: %s)",
				key, r.table, field.Name, strings.Join(set.Values(), ", "))
		}
	}
	return nil
}

func isLike(op Operator) bool {
	switch op {
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(op Operator, s string) string {
	s = likeEscaper.Replace(s)
	switch op {
	case OpStartsWith:
		return s + "%"
	case OpEndsWith:
		return "%" + s
	default:
		return "%" + s + "%"
	}
}
