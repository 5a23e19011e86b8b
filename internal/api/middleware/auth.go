package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
)

// AuthConfig holds configuration for the auth middleware
type AuthConfig struct {
	// ResourceID is the expected audience; empty accepts any audience
	ResourceID string
	// JWTAuthenticator validates bearer tokens
	JWTAuthenticator *utils.JwtAuthenticator
	// PublicPaths bypass authentication (matched as path prefixes)
	PublicPaths []string
}

// AuthMiddleware returns a Fiber middleware for Bearer token authentication
func AuthMiddleware(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, prefix := range cfg.PublicPaths {
			if strings.HasPrefix(c.Path(), prefix) {
				return c.Next()
			}
		}

		authHeader := c.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		if token == "" {
			c.Set("WWW-Authenticate", `Bearer realm="wallet-backend"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Missing or invalid Bearer token",
			})
		}

		user, err := cfg.JWTAuthenticator.ValidateToken(token)
		if err != nil {
			c.Set("WWW-Authenticate", `Bearer realm="wallet-backend", error="invalid_token"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid token",
				"message": err.Error(),
			})
		}

		if cfg.ResourceID != "" {
			hasValidAudience := false
			for _, aud := range user.Aud {
				if aud == cfg.ResourceID {
					hasValidAudience = true
					break
				}
			}
			if !hasValidAudience {
				c.Set("WWW-Authenticate", `Bearer realm="wallet-backend", error="invalid_token"`)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"success": false,
					"error":   "Invalid audience",
				})
			}
		}

		// Store authenticated user in context
		c.Locals("user", user)
		return c.Next()
	}
}

// GetAuthenticatedUser retrieves the authenticated user from Fiber context
// Returns nil if no user is found or if user is not of correct type
func GetAuthenticatedUser(c *fiber.Ctx) *utils.AuthenticatedUser {
	user, ok := c.Locals("user").(*utils.AuthenticatedUser)
	if !ok {
		return nil
	}
	return user
}
