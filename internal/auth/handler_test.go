package auth

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/certledger/certledger/internal/apperr"
	"github.com/certledger/certledger/internal/identity"
	"github.com/certledger/certledger/internal/logging"
)

func newLoginApp(t *testing.T) (*fiber.App, *Tokens) {
	t.Helper()
	ids := identity.NewService(identity.NewMemoryRepository(), identity.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, ids.Seed(context.Background(), logging.Discard(), identity.DefaultUsers))

	tokens := NewTokens("secret", time.Hour)
	h := NewHandler(NewService(ids, tokens), logging.Discard())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperr.HTTPStatus(apperr.CodeOf(err))).JSON(fiber.Map{"success": false, "message": apperr.MessageOf(err)})
		},
	})
	app.Post("/login", h.Login)
	return app, tokens
}

func login(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderUserAgent, "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestLoginIssuesTokenWithRole(t *testing.T) {
	app, tokens := newLoginApp(t)

	status, body := login(t, app, `{"username":"employer","password":"employ"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "employer", body["role"])
	assert.EqualValues(t, 3600, body["expiresIn"])

	session, err := tokens.Verify(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "employer", session.Role)

	status, body = login(t, app, `{"username":"issuer","password":"issue"}`)
	require.Equal(t, fiber.StatusOK, status)
	session, err = tokens.Verify(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "issuer", session.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app, _ := newLoginApp(t)

	for _, body := range []string{
		`{"username":"employer","password":"wrong"}`,
		`{"username":"nobody","password":"employ"}`,
	} {
		status, out := login(t, app, body)
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "Invalid credentials", out["message"])
		assert.NotContains(t, out, "token")
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	app, _ := newLoginApp(t)

	status, out := login(t, app, `{"username":"employer"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "password is required.", out["message"])
}

func TestClientAttrs(t *testing.T) {
	assert.Len(t, clientAttrs(""), 1)
	assert.Len(t, clientAttrs("Googlebot/2.1 (+http://www.google.com/bot.html)"), 3)
}
