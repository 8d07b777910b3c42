package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "arcop/pkg/domain-errors"
)

func TestRoundTrip(t *testing.T) {
	svc := NewService("test-signing-key", "arcop")

	token, err := svc.GenerateToken("dpo", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dpo", claims.Username)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewService("test-signing-key", "arcop")

	token, err := svc.GenerateToken("dpo", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_WrongKey(t *testing.T) {
	token, err := NewService("key-one", "arcop").GenerateToken("dpo", time.Hour)
	require.NoError(t, err)

	_, err = NewService("key-two", "arcop").ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := NewService("key", "arcop").ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
