package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// CSRFHeader carries the token on cookie-authenticated mutations.
const CSRFHeader = "X-CSRF-Token"

var errNoSession = errors.New("session id is required")

// CSRF derives per-session tokens as HMAC-SHA256(secret, session id), so any
// replica holding the secret can verify them.
type CSRF struct {
	secret []byte
}

func NewCSRF(secret string) *CSRF {
	return &CSRF{secret: []byte(secret)}
}

// Token returns the token bound to sessionID.
func (c *CSRF) Token(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errNoSession
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Valid compares token against the one derived for sessionID in constant time.
func (c *CSRF) Valid(sessionID, token string) bool {
	if token == "" {
		return false
	}
	expected, err := c.Token(sessionID)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(token))
}
