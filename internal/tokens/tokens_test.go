package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestAccessToken_RoundTrip(t *testing.T) {
	tok, err := NewAccessToken("42", "pengguna", time.Now().Add(time.Minute), secret)
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "pengguna", claims.Role)
}

func TestAccessClaimsFromToken_Rejects(t *testing.T) {
	expired, err := NewAccessToken("1", "pengguna", time.Now().Add(-time.Minute), secret)
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := NewAccessToken("1", "pengguna", time.Now().Add(time.Minute), secret)
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(valid, []byte("other"))
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString(secret)
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(hs512, secret)
	assert.ErrorIs(t, err, ErrUnexpectedSignMethod)

	_, err = AccessClaimsFromToken("garbage", secret)
	assert.Error(t, err)
}
