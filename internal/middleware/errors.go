package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/apperr"
)

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorHandler renders every handler error as {success:false, message}.
// Error chains are logged, never rendered.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, msg := resolve(err)
		if status >= http.StatusInternalServerError {
			requestID, _ := c.Locals(requestIDHeader).(string)
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", requestID),
				slog.Int("status", status),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(errorBody{Success: false, Message: msg})
	}
}

func resolve(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	return apperr.HTTPStatus(apperr.CodeOf(err)), apperr.MessageOf(err)
}
