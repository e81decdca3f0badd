package middleware

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/apperr"
	"github.com/certledger/certledger/internal/auth"
)

const (
	msgTokenRequired = "Access token required."
	msgTokenInvalid  = "Invalid or expired token."
	msgRoleForbidden = "Role not permitted."
)

// BearerAuth verifies the session token. A missing or non-bearer header is
// 401; a token that fails verification is 403.
func BearerAuth(tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return apperr.Unauthorized(msgTokenRequired)
		}
		session, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			return apperr.Forbidden(msgTokenInvalid)
		}
		auth.SetSession(c, session)
		return c.Next()
	}
}

// RequireRole admits sessions whose role is in roles. It must run after BearerAuth.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := auth.SessionFrom(c)
		if !ok {
			return apperr.Unauthorized(msgTokenRequired)
		}
		if !slices.Contains(roles, session.Role) {
			return apperr.Forbidden(msgRoleForbidden)
		}
		return c.Next()
	}
}
