package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the hex encoded HMAC-SHA256 of payload keyed by secret.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature matches the body. With no secret
// configured, or no signature supplied, verification is skipped and Verify
// returns true.
func Verify(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return true
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	return hmac.Equal([]byte(Sign(secret, body)), []byte(strings.ToLower(signature)))
}
