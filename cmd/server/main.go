package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/afero"

	"condition-builder/internal/admin"
	"condition-builder/internal/auth"
	"condition-builder/internal/config"
	"condition-builder/internal/engine"
	"condition-builder/internal/metadata"
	"condition-builder/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db: %s/%s)", cfg.Server.Port, cfg.Database.Driver, cfg.Database.Name)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap system tables
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap system tables: %v", err)
	}
	log.Println("System tables ready")

	// 4. Seed table definitions from the schema file
	seed, err := metadata.LoadFile(afero.NewOsFs(), cfg.Builder.SchemaFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("WARN: Schema file %s not found, using stored definitions only", cfg.Builder.SchemaFile)
	case err != nil:
		log.Fatalf("Failed to load schema file: %v", err)
	default:
		n, err := metadata.SeedTables(ctx, db, seed)
		if err != nil {
			log.Fatalf("Failed to seed tables: %v", err)
		}
		log.Printf("Seeded %d new tables from %s", n, cfg.Builder.SchemaFile)
	}

	// 5. Create registry and load metadata
	reg := metadata.NewRegistry()
	if err := metadata.LoadAll(ctx, db.DB, reg); err != nil {
		log.Printf("WARN: Failed to load metadata: %v", err)
	}

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: engine.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 8. Auth routes (no auth required)
	authHandler := auth.NewAuthHandler(db, cfg.JWTSecret)
	auth.RegisterAuthRoutes(app, authHandler)

	// 9. Admin routes (auth + admin required)
	adminHandler := admin.NewHandler(db, reg)
	admin.RegisterAdminRoutes(app, adminHandler, auth.AuthMiddleware(cfg.JWTSecret), auth.RequireAdmin())

	// 10. Condition builder routes
	conditionHandler := engine.NewHandler(db, reg, engine.Settings{
		AllowCombining: cfg.Builder.AllowCombining,
		ButtonLabel:    cfg.Builder.ButtonLabel,
		MaxDepth:       cfg.Builder.MaxDepth,
		MaxChildren:    cfg.Builder.MaxChildren,
	})
	engine.RegisterConditionRoutes(app, conditionHandler)

	// 11. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}
