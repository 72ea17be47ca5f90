package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, "user-1", "sess-1", "a@x.com", time.Now(), time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestValidateTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken([]byte("one"), "user-1", "sess-1", "", time.Now(), time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken([]byte("two"), token)
	assert.Error(t, err)

	expired, err := GenerateToken([]byte("one"), "user-1", "sess-1", "", time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken([]byte("one"), expired)
	assert.Error(t, err)
}

func TestHashTokenIsStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
