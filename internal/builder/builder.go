package builder

import (
	"context"
	"fmt"

	"condition-builder/internal/condition"
)

// SubmitFunc receives every successfully compiled submission. It is called
// exactly once per Submit, synchronously, on the caller's goroutine.
type SubmitFunc func(ctx context.Context, table string, compiled *condition.Compiled) error

// Config mirrors what a host passes to a condition builder.
type Config struct {
	Schema                   condition.Schema
	FieldOptions             condition.FieldOptions
	SavedConditions          SavedConditions
	AllowCombiningConditions bool
	ButtonLabel              string
	MaxDepth                 int
	MaxChildren              int
	ParamBuilder             func() condition.ParamBuilder
	OnSubmit                 SubmitFunc
}

type Builder struct {
	cfg Config
}

func New(cfg Config) (*Builder, error) {
	if err := cfg.Schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	for table, fields := range cfg.FieldOptions {
		for field := range fields {
			if cfg.Schema.Field(table, field) == nil {
				return nil, fmt.Errorf("options given for unknown field %s.%s", table, field)
			}
		}
	}
	return &Builder{cfg: cfg}, nil
}

// ButtonLabel is display-only.
func (b *Builder) ButtonLabel() string {
	if b.cfg.ButtonLabel == "" {
		return "Submit"
	}
	return b.cfg.ButtonLabel
}

func (b *Builder) AllowCombining() bool {
	return b.cfg.AllowCombiningConditions
}

// Schema returns the schema the builder validates against.
func (b *Builder) Schema() condition.Schema {
	return b.cfg.Schema
}

// Saved returns the snapshot the builder was configured with.
func (b *Builder) Saved() SavedConditions {
	return b.cfg.SavedConditions
}

// Compile validates and compiles tree without submitting it.
func (b *Builder) Compile(table string, tree condition.Node) (*condition.Compiled, error) {
	if err := b.checkStructure(tree); err != nil {
		return nil, err
	}
	return condition.Compile(tree, b.cfg.Schema, table, b.cfg.FieldOptions, b.compileOptions()...)
}

// Submit compiles tree and hands the result to OnSubmit. Persisting the
// submission is left to OnSubmit.
func (b *Builder) Submit(ctx context.Context, table string, tree condition.Node) (*condition.Compiled, error) {
	compiled, err := b.Compile(table, tree)
	if err != nil {
		return nil, err
	}
	if b.cfg.OnSubmit != nil {
		if err := b.cfg.OnSubmit(ctx, table, compiled); err != nil {
			return nil, fmt.Errorf("submit: %w", err)
		}
	}
	return compiled, nil
}

// Matcher builds an in-memory evaluator under the same rules as Compile.
func (b *Builder) Matcher(table string, tree condition.Node) (*condition.Matcher, error) {
	if err := b.checkStructure(tree); err != nil {
		return nil, err
	}
	return condition.NewMatcher(tree, b.cfg.Schema, table, b.cfg.FieldOptions, b.compileOptions()...)
}

// checkStructure rejects groups up front when combining is disabled.
func (b *Builder) checkStructure(tree condition.Node) error {
	if b.cfg.AllowCombiningConditions {
		return nil
	}
	if _, ok := tree.(*condition.Group); ok {
		return &condition.CompileError{
			Kind:   condition.KindStructureViolation,
			Path:   "$",
			Node:   tree,
			Reason: "combining conditions is disabled; submit a single condition",
		}
	}
	return nil
}

func (b *Builder) compileOptions() []condition.CompileOption {
	return []condition.CompileOption{
		condition.AllowGroups(b.cfg.AllowCombiningConditions),
		condition.WithLimits(b.cfg.MaxDepth, b.cfg.MaxChildren),
		condition.WithParamBuilder(b.cfg.ParamBuilder),
	}
}
