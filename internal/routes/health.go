package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/health"
)

const notConfigured = "disabled"

// RegisterHealthRoutes adds the health check and metrics exposition.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		storeStatus := health.StatusOK
		redisStatus := notConfigured
		ledgerStatus := notConfigured

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if p, ok := d.Users.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				storeStatus = err.Error()
			}
		}
		if d.Cache != nil {
			redisStatus = health.StatusOK
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		if d.Monitor != nil {
			ledgerStatus = d.Monitor.Status().State
		}

		status := http.StatusOK
		for _, s := range []string{storeStatus, redisStatus, ledgerStatus} {
			if s != health.StatusOK && s != notConfigured {
				status = http.StatusServiceUnavailable
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"store": storeStatus, "redis": redisStatus, "ledger": ledgerStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics.Handler())
	}
}
