package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"condition-builder/internal/builder"
	"condition-builder/internal/condition"
	"condition-builder/internal/metadata"
)

// ConditionStore is the persistence the handlers need. *store.Store implements it.
type ConditionStore interface {
	InsertSavedCondition(ctx context.Context, table string, compiled *condition.Compiled) (builder.SavedCondition, error)
	ListSavedConditions(ctx context.Context, table string) (builder.SavedConditions, error)
	CountWhere(ctx context.Context, table, where string, params []any) (int64, error)
	NewParamBuilder() condition.ParamBuilder
}

// Settings are the host-level builder options.
type Settings struct {
	AllowCombining bool
	ButtonLabel    string
	MaxDepth       int
	MaxChildren    int
}

type Handler struct {
	store    ConditionStore
	registry *metadata.Registry
	settings Settings
}

func NewHandler(s ConditionStore, reg *metadata.Registry, settings Settings) *Handler {
	return &Handler{store: s, registry: reg, settings: settings}
}

type conditionRequest struct {
	Table     string           `json:"table"`
	Condition json.RawMessage  `json:"condition"`
	Filter    string           `json:"filter"`
	Records   []map[string]any `json:"records"`
}

// Config handles GET /api/builder
func (h *Handler) Config(c *fiber.Ctx) error {
	saved, err := h.store.ListSavedConditions(c.Context(), c.Query("table"))
	if err != nil {
		return fmt.Errorf("list saved conditions: %w", err)
	}
	if saved == nil {
		saved = builder.SavedConditions{}
	}

	b, err := h.newBuilder(saved, nil)
	if err != nil {
		return err
	}

	operators := make(map[condition.FieldType][]condition.Operator)
	for _, t := range []condition.FieldType{condition.TypeNumber, condition.TypeString, condition.TypeBoolean, condition.TypeDate} {
		operators[t] = condition.OperatorsFor(t)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"databaseSchema":           h.registry.Schema(),
			"fieldOptions":             h.registry.FieldOptions(),
			"savedConditions":          b.Saved(),
			"allowCombiningConditions": b.AllowCombining(),
			"buttonLabel":              b.ButtonLabel(),
			"operators":                operators,
		},
	})
}

// Compile handles POST /api/conditions/compile
func (h *Handler) Compile(c *fiber.Ctx) error {
	req, tree, err := parseConditionRequest(c)
	if err != nil {
		return err
	}
	b, err := h.newBuilder(nil, nil)
	if err != nil {
		return err
	}

	compiled, err := b.Compile(req.Table, tree)
	if err != nil {
		return CompileErrorToAppError(err)
	}
	return c.JSON(fiber.Map{"data": compiled})
}

// Parse handles POST /api/conditions/parse
func (h *Handler) Parse(c *fiber.Ctx) error {
	var req conditionRequest
	if err := c.BodyParser(&req); err != nil {
		return InvalidBodyError(err)
	}
	if err := requireFields(map[string]bool{"table": req.Table != "", "filter": req.Filter != ""}); err != nil {
		return err
	}

	schema := h.registry.Schema()
	if !schema.HasTable(req.Table) {
		return CompileErrorToAppError(&condition.CompileError{
			Kind:   condition.KindSchemaViolation,
			Path:   "$",
			Reason: fmt.Sprintf("unknown table %q", req.Table),
		})
	}

	tree, err := condition.ParseCEL(req.Filter, schema, req.Table)
	if err != nil {
		return NewAppError("INVALID_FILTER", 400, err.Error())
	}

	b, err := h.newBuilder(nil, nil)
	if err != nil {
		return err
	}
	compiled, err := b.Compile(req.Table, tree)
	if err != nil {
		return CompileErrorToAppError(err)
	}
	return c.JSON(fiber.Map{"data": compiled})
}

// Submit handles POST /api/conditions
func (h *Handler) Submit(c *fiber.Ctx) error {
	req, tree, err := parseConditionRequest(c)
	if err != nil {
		return err
	}

	var saved builder.SavedCondition
	b, err := h.newBuilder(nil, func(ctx context.Context, table string, compiled *condition.Compiled) error {
		log.Printf("Generated SQL: %s %v", compiled.SQL, compiled.Params)
		log.Printf("Generated JSON: %s", compiled.JSON)
		s, err := h.store.InsertSavedCondition(ctx, table, compiled)
		if err != nil {
			return err
		}
		saved = s
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := b.Submit(c.Context(), req.Table, tree); err != nil {
		return CompileErrorToAppError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": saved})
}

// List handles GET /api/conditions
func (h *Handler) List(c *fiber.Ctx) error {
	saved, err := h.store.ListSavedConditions(c.Context(), c.Query("table"))
	if err != nil {
		return fmt.Errorf("list saved conditions: %w", err)
	}
	if saved == nil {
		saved = builder.SavedConditions{}
	}
	return c.JSON(fiber.Map{"data": saved})
}

// Match handles POST /api/conditions/match
func (h *Handler) Match(c *fiber.Ctx) error {
	req, tree, err := parseConditionRequest(c)
	if err != nil {
		return err
	}
	b, err := h.newBuilder(nil, nil)
	if err != nil {
		return err
	}

	m, err := b.Matcher(req.Table, tree)
	if err != nil {
		return CompileErrorToAppError(err)
	}

	results := make([]bool, len(req.Records))
	var details []ErrorDetail
	for i, rec := range req.Records {
		ok, err := m.Match(rec)
		if err != nil {
			details = append(details, ErrorDetail{
				Field:   fmt.Sprintf("records[%d]", i),
				Rule:    "invalid",
				Message: err.Error(),
			})
			continue
		}
		results[i] = ok
	}
	if len(details) > 0 {
		return ValidationError(details)
	}
	return c.JSON(fiber.Map{"data": results})
}

// Preview handles POST /api/conditions/preview
func (h *Handler) Preview(c *fiber.Ctx) error {
	req, tree, err := parseConditionRequest(c)
	if err != nil {
		return err
	}
	b, err := h.newBuilder(nil, nil, h.store.NewParamBuilder)
	if err != nil {
		return err
	}

	compiled, err := b.Compile(req.Table, tree)
	if err != nil {
		return CompileErrorToAppError(err)
	}
	count, err := h.store.CountWhere(c.Context(), req.Table, compiled.SQL, compiled.Params)
	if err != nil {
		return fmt.Errorf("preview %s: %w", req.Table, err)
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"count":  count,
			"sql":    compiled.SQL,
			"params": compiled.Params,
		},
	})
}

// newBuilder snapshots the registry into a builder. paramBuilder is optional;
// without it placeholders render as "?".
func (h *Handler) newBuilder(saved builder.SavedConditions, onSubmit builder.SubmitFunc, paramBuilder ...func() condition.ParamBuilder) (*builder.Builder, error) {
	cfg := builder.Config{
		Schema:                   h.registry.Schema(),
		FieldOptions:             h.registry.FieldOptions(),
		SavedConditions:          saved,
		AllowCombiningConditions: h.settings.AllowCombining,
		ButtonLabel:              h.settings.ButtonLabel,
		MaxDepth:                 h.settings.MaxDepth,
		MaxChildren:              h.settings.MaxChildren,
		OnSubmit:                 onSubmit,
	}
	if len(paramBuilder) > 0 {
		cfg.ParamBuilder = paramBuilder[0]
	}
	b, err := builder.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create builder: %w", err)
	}
	return b, nil
}

func parseConditionRequest(c *fiber.Ctx) (*conditionRequest, condition.Node, error) {
	var req conditionRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, nil, InvalidBodyError(err)
	}
	if err := requireFields(map[string]bool{"table": req.Table != "", "condition": len(req.Condition) > 0}); err != nil {
		return nil, nil, err
	}

	tree, err := condition.UnmarshalNode(req.Condition)
	if err != nil {
		return nil, nil, &AppError{
			Code:    "INVALID_CONDITION",
			Status:  400,
			Message: err.Error(),
		}
	}
	return &req, tree, nil
}

func requireFields(present map[string]bool) error {
	var details []ErrorDetail
	for _, name := range []string{"table", "condition", "filter"} {
		ok, asked := present[name]
		if asked && !ok {
			details = append(details, ErrorDetail{Field: name, Rule: "required", Message: name + " is required"})
		}
	}
	if len(details) > 0 {
		return ValidationError(details)
	}
	return nil
}
