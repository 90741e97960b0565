package auth

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"condition-builder/internal/engine"
)

const localsKey = "principal"

// Principal is the caller identified by a valid access token.
type Principal struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

func (p *Principal) IsAdmin() bool {
	return slices.Contains(p.Roles, "admin")
}

// AuthMiddleware returns a Fiber middleware that validates JWT tokens
// and stores the Principal on the request.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(token, secret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		c.Locals(localsKey, &Principal{ID: claims.Subject, Roles: claims.Roles})
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return engine.UnauthorizedError("Missing auth token")
		}
		if !p.IsAdmin() {
			return engine.ForbiddenError("Admin access required")
		}
		return c.Next()
	}
}

// GetPrincipal returns the authenticated caller, or nil.
func GetPrincipal(c *fiber.Ctx) *Principal {
	p, _ := c.Locals(localsKey).(*Principal)
	return p
}
