package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("acc-1", "alice@example.com", "secret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "alice@example.com", claims.Identifier)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)

	_, err = ParseJWT("garbage", "secret")
	assert.Error(t, err)
}
