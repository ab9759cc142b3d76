// Package secrets generates shared secrets for webhook subscriptions.
//
// Secrets are stored as plaintext on the subscription row because the signer
// needs them to compute HMAC signatures on every delivery. They are returned
// to the registering app exactly once and never exposed again through the API.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	dErrors "taleweave/pkg/domain-errors"
)

// Generate creates a cryptographically secure random secret.
// Returns a base64-encoded string suitable for use as a webhook signing key.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Equal compares two secrets in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
