package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/middleware"
	"github.com/certledger/certledger/internal/routes"
)

// BodyLimit bounds request bodies, including uploaded documents.
const BodyLimit = 10 << 20

// Server wraps the Fiber application and the background ledger probe.
type Server struct {
	app    *fiber.App
	deps   routes.Deps
	logger *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(d routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               d.Cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             BodyLimit,
		ErrorHandler:          middleware.ErrorHandler(d.Logger),
		DisableStartupMessage: !d.Cfg.IsDev(),
	})

	if err := routes.Setup(app, d); err != nil {
		return nil, err
	}
	return &Server{app: app, deps: d, logger: d.Logger}, nil
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the ledger probe and then serves HTTP until shutdown.
func (s *Server) Listen() error {
	if s.deps.Monitor != nil {
		s.deps.Monitor.Start()
	}
	s.logger.Info("listening", slog.String("addr", s.deps.Cfg.Address()))
	return s.app.Listen(s.deps.Cfg.Address())
}

// Shutdown drains in-flight requests and stops the probe.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if s.deps.Monitor != nil {
		s.deps.Monitor.Stop()
	}
	return err
}
