package condition

// ParamBuilder accumulates bound values and returns the placeholder for each.
// The store package provides dialect-specific builders ($1, ?1).
type ParamBuilder interface {
	Add(v any) string
	Params() []any
}

type questionParams struct {
	params []any
}

func (p *questionParams) Add(v any) string {
	p.params = append(p.params, v)
	return "?"
}

func (p *questionParams) Params() []any { return p.params }

// NewQuestionParams returns a builder that renders every placeholder as "?".
func NewQuestionParams() ParamBuilder {
	return &questionParams{}
}
