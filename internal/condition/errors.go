package condition

import (
	"errors"
	"fmt"
)

// Kind classifies why a tree failed to compile.
type Kind string

const (
	KindSchemaViolation     Kind = "SchemaViolation"
	KindTypeMismatch        Kind = "TypeMismatch"
	KindInvalidOperator     Kind = "InvalidOperator"
	KindConstraintViolation Kind = "ConstraintViolation"
	KindStructureViolation  Kind = "StructureViolation"
)

var (
	ErrSchemaViolation     = errors.New("schema violation")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrInvalidOperator     = errors.New("invalid operator")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStructureViolation  = errors.New("structure violation")
)

var kindSentinels = map[Kind]error{
	KindSchemaViolation:     ErrSchemaViolation,
	KindTypeMismatch:        ErrTypeMismatch,
	KindInvalidOperator:     ErrInvalidOperator,
	KindConstraintViolation: ErrConstraintViolation,
	KindStructureViolation:  ErrStructureViolation,
}

// CompileError carries the offending node, its location in the tree and the
// reason code.
type CompileError struct {
	Kind   Kind
	Path   string // e.g. "$.children[1]"
	Node   Node
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s at %s: %s", kindSentinels[e.Kind], e.Path, e.Reason)
}

// Is lets errors.Is match the package sentinels.
func (e *CompileError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func newError(kind Kind, path string, node Node, format string, args ...any) *CompileError {
	return &CompileError{
		Kind:   kind,
		Path:   path,
		Node:   node,
		Reason: fmt.Sprintf(format, args...),
	}
}
