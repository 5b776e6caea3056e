package auth

import "golang.org/x/crypto/bcrypt"

// WebhookVerifier checks the shared secret presented by the ticket lifecycle
// emitter on the status webhook. The configured value is a bcrypt hash so the
// plaintext secret never lives in the environment.
type WebhookVerifier struct {
	secretHash []byte
}

// NewWebhookVerifier builds a verifier; an empty hash disables secret auth.
func NewWebhookVerifier(secretHash string) *WebhookVerifier {
	return &WebhookVerifier{secretHash: []byte(secretHash)}
}

// Enabled reports whether a secret hash is configured.
func (v *WebhookVerifier) Enabled() bool {
	return len(v.secretHash) > 0
}

// Verify compares the presented secret against the configured hash.
func (v *WebhookVerifier) Verify(secret string) bool {
	if !v.Enabled() || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.secretHash, []byte(secret)) == nil
}
