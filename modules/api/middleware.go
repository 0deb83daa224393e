package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dddd2356/sunhan-websocket-backend/modules/identity"
)

const (
	// IdentityContextKey is the key used to store the resolved identity in
	// the Fiber context.
	IdentityContextKey = "identity"
)

// AuthMiddleware creates a middleware that resolves the caller's identity
// from a Bearer token.
func AuthMiddleware(identityPort identity.Port) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token is required",
			})
		}

		caller, err := identityPort.ResolveIdentity(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(IdentityContextKey, caller)

		return c.Next()
	}
}

// currentIdentity returns the identity stored by AuthMiddleware.
func currentIdentity(c *fiber.Ctx) *identity.Identity {
	caller, _ := c.Locals(IdentityContextKey).(*identity.Identity)
	return caller
}
