package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"condition-builder/internal/engine"
	"condition-builder/internal/store"
)

// UserFinder looks up login accounts. *store.Store implements it.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*store.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	users     UserFinder
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users UserFinder, jwtSecret string) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return engine.UnauthorizedError("Email and password are required")
	}

	user, err := h.users.FindUserByEmail(c.Context(), body.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.UnauthorizedError("Invalid email or password")
		}
		return fmt.Errorf("find user: %w", err)
	}

	if !user.Active {
		return engine.UnauthorizedError("Account is disabled")
	}
	if !CheckPassword(body.Password, user.PasswordHash) {
		return engine.UnauthorizedError("Invalid email or password")
	}

	token, err := GenerateAccessToken(user.ID, user.Roles, h.jwtSecret)
	if err != nil {
		return engine.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	return c.JSON(fiber.Map{"data": LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(AccessTokenTTL.Seconds()),
	}})
}

// RegisterAuthRoutes registers auth routes on the given Fiber app.
func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	auth := app.Group("/api/auth")
	auth.Post("/login", h.Login)
}
