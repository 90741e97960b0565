package engine

import "github.com/gofiber/fiber/v2"

func RegisterConditionRoutes(app *fiber.App, h *Handler) {
	api := app.Group("/api")

	api.Get("/builder", h.Config)

	api.Get("/conditions", h.List)
	api.Post("/conditions", h.Submit)
	api.Post("/conditions/compile", h.Compile)
	api.Post("/conditions/parse", h.Parse)
	api.Post("/conditions/match", h.Match)
	api.Post("/conditions/preview", h.Preview)
}
