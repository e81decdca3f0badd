package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesExistingCode(t *testing.T) {
	inner := NotFound("no such user")
	wrapped := Wrap(fmt.Errorf("lookup: %w", inner), CodeInternal, "login failed")

	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.True(t, errors.Is(wrapped, NotFound("")))
}

func TestUpstreamHidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:8545: connect: connection refused")
	err := Upstream(cause, "Server error during verification.")

	assert.Equal(t, "Server error during verification.", MessageOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessageOfPlainErrorIsGeneric(t *testing.T) {
	assert.Equal(t, "Internal Server Error", MessageOf(errors.New("pq: secret detail")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeUpstream:     http.StatusInternalServerError,
		CodeUnavailable:  http.StatusNotImplemented,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), code)
	}
}
