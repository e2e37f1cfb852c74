package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// WebhookSigner authenticates approval webhook payloads. The signature is an
// HMAC-SHA256 over "plan_id:decision" with the shared webhook secret, hex
// encoded, so the approval channel cannot be spoofed or replayed onto a
// different plan.
type WebhookSigner struct {
	secret []byte
}

// NewWebhookSigner creates a signer over the shared secret
func NewWebhookSigner(secret string) *WebhookSigner {
	return &WebhookSigner{secret: []byte(secret)}
}

// Sign computes the expected signature for a plan decision
func (s *WebhookSigner) Sign(planID, decision string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(planID + ":" + decision))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the presented signature in constant time, returning an
// AuthError on any mismatch.
func (s *WebhookSigner) Verify(planID, decision, signature string) error {
	expected := s.Sign(planID, decision)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.NewAuthError("invalid webhook signature")
	}
	return nil
}
