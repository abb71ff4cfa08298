package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Prefix is the scheme tag carried in the X-Webhook-Signature header.
const Prefix = "sha256="

// Sign computes the webhook signature for a raw request body.
// The result is "sha256=<hex HMAC-SHA256(secret, body)>".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header against a raw body using a constant-time
// comparison. Headers without the sha256= prefix never verify.
func Verify(secret string, body []byte, signature string) bool {
	if !strings.HasPrefix(signature, Prefix) {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
