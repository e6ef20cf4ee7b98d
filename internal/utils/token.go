package utils // package utils provides helpers for tokens, receipts and password hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// SessionTokenBytes is the entropy of a session token before encoding.
const SessionTokenBytes = 32

// NewSessionToken returns a URL-safe random bearer token.  The raw value
// goes to the client once; only HashToken(raw) is stored.
func NewSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 of a raw token.  Storing only the hash
// keeps a leaked table from yielding usable credentials.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
