package routes

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/certledger/certledger/internal/auth"
	"github.com/certledger/certledger/internal/cache"
	"github.com/certledger/certledger/internal/config"
	"github.com/certledger/certledger/internal/credential"
	"github.com/certledger/certledger/internal/health"
	"github.com/certledger/certledger/internal/identity"
	"github.com/certledger/certledger/internal/metrics"
	"github.com/certledger/certledger/internal/middleware"
	"github.com/certledger/certledger/internal/notification"
)

// Pinger is implemented by stores that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	Users   identity.Repository
	Ledger  credential.Ledger
	Writer  credential.Writer
	Cache   *redis.Client
	Monitor *health.Monitor
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// BcryptCost overrides the password hashing cost; zero keeps the default.
	BcryptCost int
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Users == nil || d.Ledger == nil {
		return errors.New("routes: user store and ledger are required")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var idOpts []identity.Option
	if d.BcryptCost != 0 {
		idOpts = append(idOpts, identity.WithBcryptCost(d.BcryptCost))
	}
	identitySvc := identity.NewService(d.Users, idOpts...)
	tokens := auth.NewTokens(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	authHandler := auth.NewHandler(auth.NewService(identitySvc, tokens), d.Logger)
	identityHandler := identity.NewHandler(identitySvc, d.Logger)

	credOpts := []credential.Option{
		credential.WithTimeout(d.Cfg.LedgerTimeout),
		credential.WithMetrics(d.Metrics),
		credential.WithNotifier(notification.NewLoggerNotifier(d.Logger)),
	}
	if d.Writer != nil {
		credOpts = append(credOpts, credential.WithWriter(d.Writer))
	}
	if d.Cache != nil && d.Cfg.CacheTTL > 0 {
		credOpts = append(credOpts, credential.WithCache(cache.NewRedis(d.Cache, d.Cfg.CacheTTL)))
	}
	credentialSvc := credential.NewService(d.Ledger, d.Logger, credOpts...)

	bearer := middleware.BearerAuth(tokens)

	RegisterAuthRoutes(app, authHandler, identityHandler, bearer,
		middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, d.Logger))
	RegisterCredentialRoutes(app, credentialSvc, d, bearer)

	return nil
}
