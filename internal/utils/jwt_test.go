// internal/utils/jwt_test.go
package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withJWTSettings(t *testing.T, secret, issuer string) {
	prevSecret, prevIssuer := jwtSecret, jwtIssuer
	SetJWTSecret(secret)
	SetJWTIssuer(issuer)
	t.Cleanup(func() {
		jwtSecret, jwtIssuer = prevSecret, prevIssuer
	})
}

func TestJWTRoundTrip(t *testing.T) {
	withJWTSettings(t, "test-secret", "https://idp.example.com/")

	token, err := GenerateJWT("auth0|42", "dana@example.com", "Dana", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "auth0|42", claims.Subject)
	assert.Equal(t, "dana@example.com", claims.Email)
	assert.True(t, claims.HasRole("admin"))
	assert.False(t, claims.HasRole("expert"))
}

func TestJWTRejectsBadTokens(t *testing.T) {
	withJWTSettings(t, "test-secret", "")

	expired, err := GenerateJWT("u1", "", "", nil, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(expired)
	assert.Error(t, err)

	anonymous, err := GenerateJWT("", "", "", nil, time.Hour)
	require.NoError(t, err)
	_, err = ValidateJWT(anonymous)
	assert.EqualError(t, err, "token has no subject")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = ValidateJWT(signed)
	assert.Error(t, err)
}

func TestJWTIssuerCheck(t *testing.T) {
	withJWTSettings(t, "test-secret", "https://other-idp.example.com/")
	token, err := GenerateJWT("u1", "", "", nil, time.Hour)
	require.NoError(t, err)

	SetJWTIssuer("https://idp.example.com/")
	_, err = ValidateJWT(token)
	assert.EqualError(t, err, "unexpected token issuer")
}
