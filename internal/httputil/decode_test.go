package httputil

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/internal/apperr"
)

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *loginBody) Validate() error {
	return Required([2]string{"username", r.Username}, [2]string{"password", r.Password})
}

func decodeStatus(t *testing.T, body string) (int, string) {
	t.Helper()
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		req, err := DecodeJSON[loginBody](c)
		if err != nil {
			return c.Status(apperr.HTTPStatus(apperr.CodeOf(err))).SendString(apperr.MessageOf(err))
		}
		return c.SendString(req.Username)
	})
	r := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(body))
	r.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(r)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestDecodeJSONAcceptsKnownFields(t *testing.T) {
	status, body := decodeStatus(t, `{"username":"employer","password":"employ"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "employer", body)
}

func TestDecodeJSONRejectsUnknownField(t *testing.T) {
	status, body := decodeStatus(t, `{"username":"employer","password":"employ","admin":true}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body.", body)
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	status, _ := decodeStatus(t, `{"username":"a","password":"b"}{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestDecodeJSONRunsValidation(t *testing.T) {
	status, body := decodeStatus(t, `{"username":"employer"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "password is required.", body)
}
