// Package signer computes webhook payload signatures.
//
// Signatures are HMAC-SHA256 over the exact wire bytes, keyed by the
// per-subscription shared secret. Consumers recompute the HMAC over the
// request body they received and compare against the X-Taleweave-Signature
// header.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Prefix identifies the digest algorithm in the signature header value.
const Prefix = "sha256="

// Sign returns "sha256=<hex digest>" for the payload under the secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the payload under the secret.
// Comparison is constant time.
func Verify(payload []byte, secret, signature string) bool {
	if !strings.HasPrefix(signature, Prefix) {
		return false
	}
	expected := Sign(payload, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
