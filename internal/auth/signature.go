// Package auth verifies GitHub webhook delivery signatures.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignaturePrefix is the scheme GitHub prepends to the hex digest in the
// X-Hub-Signature-256 header.
const SignaturePrefix = "sha256="

// Sign computes the signature header value for a payload.
// Returns a string in the format: sha256=<hex digest>
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header against the payload. A malformed
// header is an error; a well-formed header that does not match is
// (false, nil).
func Verify(secret []byte, header string, payload []byte) (bool, error) {
	digest, err := decodeSignature(header)
	if err != nil {
		return false, err
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)

	// Constant-time comparison
	return hmac.Equal(digest, mac.Sum(nil)), nil
}

// decodeSignature parses an X-Hub-Signature-256 header value.
func decodeSignature(header string) ([]byte, error) {
	encoded, found := strings.CutPrefix(header, SignaturePrefix)
	if !found {
		return nil, fmt.Errorf("invalid signature scheme: expected %s prefix", SignaturePrefix)
	}

	digest, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("invalid signature length: expected %d bytes, got %d", sha256.Size, len(digest))
	}

	return digest, nil
}
