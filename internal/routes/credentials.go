package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/credential"
	"github.com/certledger/certledger/internal/middleware"
	"github.com/certledger/certledger/internal/verification"
)

// RegisterCredentialRoutes wires lookup, document matching and issuance.
// Authentication and the role policy run before any ledger access. Issuance
// is limited to roles that registration cannot grant.
func RegisterCredentialRoutes(r fiber.Router, svc *credential.Service, d Deps, bearer fiber.Handler) {
	h := credential.NewHandler(svc, d.Logger)
	docs := verification.NewHandler(svc, d.Logger)

	verify := r.Group("/verify", bearer, middleware.RequireRole(d.Cfg.VerifyAllowedRoles...))
	verify.Get("/:address", h.Verify)
	verify.Post("/:address/document", docs.Document)

	r.Post("/credentials",
		bearer,
		middleware.RequireRole(d.Cfg.IssueAllowedRoles...),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		h.Issue,
	)
}
