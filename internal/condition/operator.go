package condition

type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not-equals"
	OpGreaterThan        Operator = "greater-than"
	OpGreaterThanOrEqual Operator = "greater-than-or-equal"
	OpLessThan           Operator = "less-than"
	OpLessThanOrEqual    Operator = "less-than-or-equal"
	OpBetween            Operator = "between"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not-contains"
	OpStartsWith         Operator = "starts-with"
	OpEndsWith           Operator = "ends-with"
	OpInSet              Operator = "in-set"
	OpNotInSet           Operator = "not-in-set"
	OpIsNull             Operator = "is-null"
	OpIsNotNull          Operator = "is-not-null"
)

// arity describes the value shape an operator expects.
type arity int

const (
	arityScalar arity = iota
	arityList
	arityPair
	arityNone
)

type operatorInfo struct {
	sql   string
	arity arity
}

var operators = map[Operator]operatorInfo{
	OpEquals:             {"=", arityScalar},
	OpNotEquals:          {"!=", arityScalar},
	OpGreaterThan:        {">", arityScalar},
	OpGreaterThanOrEqual: {">=", arityScalar},
	OpLessThan:           {"<", arityScalar},
	OpLessThanOrEqual:    {"<=", arityScalar},
	OpBetween:            {"BETWEEN", arityPair},
	OpContains:           {"LIKE", arityScalar},
	OpNotContains:        {"NOT LIKE", arityScalar},
	OpStartsWith:         {"LIKE", arityScalar},
	OpEndsWith:           {"LIKE", arityScalar},
	OpInSet:              {"IN", arityList},
	OpNotInSet:           {"NOT IN", arityList},
	OpIsNull:             {"IS NULL", arityNone},
	OpIsNotNull:          {"IS NOT NULL", arityNone},
}

var typeOperators = map[FieldType][]Operator{
	TypeNumber: {
		OpEquals, OpNotEquals,
		OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
		OpBetween, OpInSet, OpNotInSet,
		OpIsNull, OpIsNotNull,
	},
	TypeString: {
		OpEquals, OpNotEquals,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith,
		OpInSet, OpNotInSet,
		OpIsNull, OpIsNotNull,
	},
	TypeBoolean: {
		OpEquals, OpNotEquals,
		OpIsNull, OpIsNotNull,
	},
	TypeDate: {
		OpEquals, OpNotEquals,
		OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
		OpBetween, OpInSet, OpNotInSet,
		OpIsNull, OpIsNotNull,
	},
}

// OperatorsFor returns the operators valid for a field type, in display order.
func OperatorsFor(t FieldType) []Operator {
	ops := typeOperators[t]
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// Supports reports whether op may be applied to a field of type t.
func (op Operator) Supports(t FieldType) bool {
	for _, candidate := range typeOperators[t] {
		if candidate == op {
			return true
		}
	}
	return false
}

// Known reports whether op is a recognized operator at all.
func (op Operator) Known() bool {
	_, ok := operators[op]
	return ok
}
