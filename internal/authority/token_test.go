package authority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
)

var tokens = NewTokenService("test-signing-key", "test-issuer")

const host = domain.Authority("HostWa11etKey1111111111111111111111111111111")

func TestIssueAndVerify(t *testing.T) {
	token, err := tokens.Issue(host, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, host, id.Authority)

	authority, err := tokens.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, host, authority)
}

func TestVerifyRejects(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("invalid-token-string")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired", func(t *testing.T) {
		token, err := tokens.Issue(host, -time.Hour)
		require.NoError(t, err)

		_, err = tokens.Verify(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("other signing key", func(t *testing.T) {
		token, err := NewTokenService("another-key", "test-issuer").Issue(host, time.Hour)
		require.NoError(t, err)

		_, err = tokens.Verify(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("other issuer", func(t *testing.T) {
		token, err := NewTokenService("test-signing-key", "someone-else").Issue(host, time.Hour)
		require.NoError(t, err)

		_, err = tokens.Verify(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestIssueRequiresAuthority(t *testing.T) {
	_, err := tokens.Issue("", time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
