package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/internal/apperr"
	"github.com/certledger/certledger/internal/logging"
)

func setupIdempotencyApp(t *testing.T) (*fiber.App, *atomic.Int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	calls := &atomic.Int32{}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := calls.Add(1)
		if string(c.Body()) == `{"fail":true}` {
			return apperr.Validation("bad input")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"call": n})
	})
	return app, calls
}

func postWithKey(t *testing.T, app *fiber.App, key, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(payload)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	status, body := postWithKey(t, app, "", "{}")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "Idempotency-Key")
	assert.Zero(t, calls.Load())
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	status, first := postWithKey(t, app, "abc123", "{}")
	require.Equal(t, fiber.StatusAccepted, status)

	status, second := postWithKey(t, app, "abc123", "{}")
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	app, _ := setupIdempotencyApp(t)

	status, _ := postWithKey(t, app, "k1", `{"a":1}`)
	require.Equal(t, fiber.StatusAccepted, status)

	status, _ = postWithKey(t, app, "k1", `{"a":2}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestIdempotencyReleasesKeyOnHandlerError(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	status, _ := postWithKey(t, app, "k2", `{"fail":true}`)
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = postWithKey(t, app, "k2", `{"fail":true}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotencyWithoutRedisIsNoop(t *testing.T) {
	app := fiber.New()
	app.Use(Idempotency(nil, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/resource", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestIdempotencyInFlightKeyConflicts(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusAccepted) })

	require.NoError(t, mr.Set(idempotencyPrefix+"anon:POST:/resource:busy", inProgressMarker))

	status, body := postWithKey(t, app, "busy", "{}")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.JSONEq(t, `{"success":false,"message":"Duplicate request currently processing."}`, body)
}
