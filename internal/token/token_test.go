package token

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, subject, role string, expiresAt time.Time) string {
	t.Helper()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return signed
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	info, err := Inspect(signedToken(t, "alice", "admin", exp))
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Subject)
	assert.Equal(t, "admin", info.Role)
	assert.True(t, exp.Equal(info.ExpiresAt))
	assert.False(t, info.Expired(time.Now()))
	assert.True(t, info.Expired(exp.Add(time.Second)))
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, Expired(signedToken(t, "bob", "user", now.Add(-time.Minute)), now))
	assert.False(t, Expired(signedToken(t, "bob", "user", now.Add(time.Minute)), now))
	assert.False(t, Expired("opaque-token", now), "non-JWT tokens are not judged locally")
}
