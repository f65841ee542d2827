package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateToken(t *testing.T) {
	m := NewManager("test-secret")

	token, err := m.IssueToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a").IssueToken(42)
	require.NoError(t, err)

	_, err = NewManager("secret-b").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := NewManager("test-secret").ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", hash)

	assert.NoError(t, CheckPassword("hunter22", hash))
	assert.Error(t, CheckPassword("wrong", hash))
}
