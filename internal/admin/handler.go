package admin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"condition-builder/internal/engine"
	"condition-builder/internal/metadata"
	"condition-builder/internal/store"
)

type Handler struct {
	store    *store.Store
	registry *metadata.Registry
}

func NewHandler(s *store.Store, reg *metadata.Registry) *Handler {
	return &Handler{store: s, registry: reg}
}

func RegisterAdminRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	admin := app.Group("/api/_admin", middleware...)

	admin.Get("/tables", h.ListTables)
	admin.Get("/tables/:name", h.GetTable)
	admin.Post("/tables", h.CreateTable)
	admin.Put("/tables/:name", h.UpdateTable)
	admin.Delete("/tables/:name", h.DeleteTable)
}

func (h *Handler) ListTables(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.AllTables()})
}

func (h *Handler) GetTable(c *fiber.Ctx) error {
	name := c.Params("name")
	t := h.registry.GetTable(name)
	if t == nil {
		return engine.UnknownTableError(name)
	}
	return c.JSON(fiber.Map{"data": t})
}

func (h *Handler) CreateTable(c *fiber.Ctx) error {
	var t metadata.Table
	if err := c.BodyParser(&t); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": fiber.Map{"code": "INVALID_PAYLOAD", "message": "Invalid JSON body"}})
	}

	if err := t.Validate(); err != nil {
		return c.Status(422).JSON(fiber.Map{"error": fiber.Map{"code": "VALIDATION_FAILED", "message": err.Error()}})
	}

	defJSON, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal table: %w", err)
	}

	pb := h.store.Dialect.NewParamBuilder()
	_, err = store.Exec(c.Context(), h.store.DB,
		fmt.Sprintf("INSERT INTO _tables (name, definition) VALUES (%s, %s)", pb.Add(t.Name), pb.Add(string(defJSON))),
		pb.Params()...)
	if err != nil {
		if errors.Is(store.MapError(h.store.Dialect, err), store.ErrUniqueViolation) {
			return c.Status(409).JSON(fiber.Map{"error": fiber.Map{"code": "CONFLICT", "message": "Table already exists: " + t.Name}})
		}
		return fmt.Errorf("insert table: %w", err)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return c.Status(201).JSON(fiber.Map{"data": t})
}

func (h *Handler) UpdateTable(c *fiber.Ctx) error {
	name := c.Params("name")
	if h.registry.GetTable(name) == nil {
		return engine.UnknownTableError(name)
	}

	var t metadata.Table
	if err := c.BodyParser(&t); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": fiber.Map{"code": "INVALID_PAYLOAD", "message": "Invalid JSON body"}})
	}
	t.Name = name // ensure name matches URL

	if err := t.Validate(); err != nil {
		return c.Status(422).JSON(fiber.Map{"error": fiber.Map{"code": "VALIDATION_FAILED", "message": err.Error()}})
	}

	defJSON, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal table: %w", err)
	}

	pb := h.store.Dialect.NewParamBuilder()
	_, err = store.Exec(c.Context(), h.store.DB,
		fmt.Sprintf("UPDATE _tables SET definition = %s, updated_at = %s WHERE name = %s",
			pb.Add(string(defJSON)), h.store.Dialect.NowExpr(), pb.Add(name)),
		pb.Params()...)
	if err != nil {
		return fmt.Errorf("update table: %w", err)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return c.JSON(fiber.Map{"data": t})
}

// DeleteTable removes the definition only. Saved conditions that reference the
// table stay in the append-only log.
func (h *Handler) DeleteTable(c *fiber.Ctx) error {
	name := c.Params("name")

	pb := h.store.Dialect.NewParamBuilder()
	n, err := store.Exec(c.Context(), h.store.DB,
		fmt.Sprintf("DELETE FROM _tables WHERE name = %s", pb.Add(name)), pb.Params()...)
	if err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	if n == 0 {
		return engine.UnknownTableError(name)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"name": name, "deleted": true}})
}
