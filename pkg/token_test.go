package pkg

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseJwtToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"uid": 5, "sid": 9, "exp": time.Now().Add(time.Hour).Unix()}, "secret")

	claims, err := ParseJwtToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(5), claims.UID)
	require.NotNil(t, claims.SID)
	assert.Equal(t, int64(9), *claims.SID)
}

func TestParseJwtToken_WrongSecret(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"uid": 5}, "secret")

	_, err := ParseJwtToken(token, "other")
	assert.Error(t, err)
}

func TestGetTokenFromHeaders(t *testing.T) {
	token, err := GetTokenFromHeaders("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = GetTokenFromHeaders("")
	assert.Error(t, err)

	_, err = GetTokenFromHeaders("Basic abc")
	assert.Error(t, err)

	_, err = GetTokenFromHeaders("Bearer ")
	assert.Error(t, err)
}
