package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyWebhookSignature reports whether signature is the hex-encoded
// HMAC-SHA256 of body under secret. The body must be the raw request bytes:
// hashing re-serialized JSON breaks verification because key order and
// whitespace may differ from what the gateway signed.
//
// An empty secret always fails (fail closed). Comparison is constant time.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignWebhookBody returns the hex-encoded HMAC-SHA256 of body under secret.
// Used by tests and by outbound callback verification tooling.
func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
