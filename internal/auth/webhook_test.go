package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestWebhookVerifier(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("lifecycle-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	verifier := NewWebhookVerifier(string(hash))
	require.True(t, verifier.Enabled())
	require.True(t, verifier.Verify("lifecycle-secret"))
	require.False(t, verifier.Verify("wrong-secret"))
	require.False(t, verifier.Verify(""))
}

func TestWebhookVerifierDisabledWithoutHash(t *testing.T) {
	verifier := NewWebhookVerifier("")
	require.False(t, verifier.Enabled())
	require.False(t, verifier.Verify("anything"))
}
