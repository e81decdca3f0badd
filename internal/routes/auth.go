package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/auth"
	"github.com/certledger/certledger/internal/identity"
)

// RegisterAuthRoutes wires registration, login and the session profile.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, ids *identity.Handler, bearer, rateLimiter fiber.Handler) {
	r.Post("/register", ids.Register)
	r.Post("/login", rateLimiter, h.Login)
	r.Get("/me", bearer, h.Me)
}
