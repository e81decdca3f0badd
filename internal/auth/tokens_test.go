package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	signed, exp, err := tokens.Issue(42, "employer")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	session, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), session.UserID)
	assert.Equal(t, "employer", session.Role)
}

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	signed, _, err := tokens.Issue(1, "learner")
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectWrongSecret(t *testing.T) {
	signed, _, err := NewTokens("one", time.Hour).Issue(1, "learner")
	require.NoError(t, err)

	_, err = NewTokens("two", time.Hour).Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectOtherAlgorithms(t *testing.T) {
	claims := Claims{
		Role: "learner",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokens("secret", time.Hour).Verify(none)
	require.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = NewTokens("secret", time.Hour).Verify(hs512)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectUnknownRoleAndMissingExpiry(t *testing.T) {
	sign := func(c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
		require.NoError(t, err)
		return s
	}
	tokens := NewTokens("secret", time.Hour)

	_, err := tokens.Verify(sign(Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify(sign(Claims{Role: "learner", RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
