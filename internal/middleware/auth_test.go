package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/internal/auth"
	"github.com/certledger/certledger/internal/logging"
)

func newAuthApp(tokens *auth.Tokens, roles ...string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Get("/private", BearerAuth(tokens), RequireRole(roles...), func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		return c.JSON(fiber.Map{"role": session.Role, "userId": session.UserID})
	})
	return app
}

func getWithAuth(t *testing.T, app *fiber.App, authz string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/private", nil)
	if authz != "" {
		req.Header.Set(fiber.HeaderAuthorization, authz)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestBearerAuth(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	app := newAuthApp(tokens, "learner", "employer")

	valid, _, err := tokens.Issue(7, "employer")
	require.NoError(t, err)
	forged, _, err := auth.NewTokens("other", time.Hour).Issue(7, "employer")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwdw==", fiber.StatusUnauthorized},
		{"empty bearer", "Bearer ", fiber.StatusUnauthorized},
		{"garbage token", "Bearer nope", fiber.StatusForbidden},
		{"wrong secret", "Bearer " + forged, fiber.StatusForbidden},
		{"valid", "Bearer " + valid, fiber.StatusOK},
		{"lowercase scheme", "bearer " + valid, fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := getWithAuth(t, app, tc.header)
			assert.Equal(t, tc.status, status)
			if tc.status == fiber.StatusOK {
				assert.Equal(t, "employer", body["role"])
				assert.EqualValues(t, 7, body["userId"])
			} else {
				assert.Equal(t, false, body["success"])
			}
		})
	}
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	app := newAuthApp(tokens, "employer")

	learner, _, err := tokens.Issue(1, "learner")
	require.NoError(t, err)

	status, body := getWithAuth(t, app, "Bearer "+learner)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, msgRoleForbidden, body["message"])
}

func TestRequireRoleAdmitsIssuer(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	app := newAuthApp(tokens, "issuer")

	issuer, _, err := tokens.Issue(3, "issuer")
	require.NoError(t, err)
	employer, _, err := tokens.Issue(4, "employer")
	require.NoError(t, err)

	status, body := getWithAuth(t, app, "Bearer "+issuer)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "issuer", body["role"])

	status, body = getWithAuth(t, app, "Bearer "+employer)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, msgRoleForbidden, body["message"])
}
