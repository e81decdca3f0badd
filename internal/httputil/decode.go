// Package httputil holds request decoding helpers shared by fiber handlers.
package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/apperr"
)

// Validatable is implemented by request types that check their own fields.
type Validatable interface {
	Validate() error
}

// DecodeJSON strictly decodes the request body into T: unknown fields,
// trailing data and malformed JSON are validation errors. When T implements
// Validatable its Validate result is returned.
func DecodeJSON[T any](c *fiber.Ctx) (T, error) {
	var req T
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, apperr.Wrap(err, apperr.CodeValidation, "Invalid request body.")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, apperr.Validation("Invalid request body.")
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return req, err
		}
	}
	return req, nil
}

// Required returns a validation error naming the first empty field.
func Required(fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			return apperr.Validation(fmt.Sprintf("%s is required.", f[0]))
		}
	}
	return nil
}
