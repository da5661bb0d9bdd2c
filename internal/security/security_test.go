package security

import (
	"crypto/tls"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-chars-long-for-hs256"

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", ""))

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "bcrypt salts each hash")
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, "emotiva", time.Hour)

	tok, err := m.Issue(42, "guardian")
	require.NoError(t, err)

	id, role, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "guardian", role)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret, "emotiva", time.Hour)
	tok, err := m.Issue(1, "school")
	require.NoError(t, err)

	expired := NewTokenManager(testSecret, "emotiva", -time.Hour)
	expiredTok, err := expired.Issue(1, "school")
	require.NoError(t, err)

	otherIssuer := NewTokenManager(testSecret, "someone-else", time.Hour)
	otherTok, err := otherIssuer.Issue(1, "school")
	require.NoError(t, err)

	otherSecret := NewTokenManager(strings.Repeat("x", 40), "emotiva", time.Hour)

	tests := []struct {
		name    string
		manager *TokenManager
		token   string
	}{
		{"empty", m, ""},
		{"garbage", m, "not.a.jwt"},
		{"expired", m, expiredTok},
		{"wrong issuer", m, otherTok},
		{"wrong secret", otherSecret, tok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.manager.Verify(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestCSRF(t *testing.T) {
	c := NewCSRF(testSecret)

	tok, err := c.Token("session-1")
	require.NoError(t, err)

	again, err := c.Token("session-1")
	require.NoError(t, err)
	assert.Equal(t, tok, again)

	assert.True(t, c.Valid("session-1", tok))
	assert.False(t, c.Valid("session-2", tok))
	assert.False(t, c.Valid("session-1", ""))
	assert.False(t, c.Valid("", tok))
	assert.False(t, NewCSRF("another-secret").Valid("session-1", tok))

	_, err = c.Token("")
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys are independent")

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("a"), "one token refilled after half a window")
	assert.False(t, rl.Allow("a"))

	now = now.Add(10 * time.Minute)
	rl.evictIdle()
	rl.mu.Lock()
	assert.Empty(t, rl.buckets)
	rl.mu.Unlock()
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.3")
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

func TestSessionCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	exp := time.Now().Add(time.Hour)

	c := SessionCookie(r, "abc", exp)
	assert.Equal(t, SessionCookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)

	r.TLS = &tls.ConnectionState{}
	assert.True(t, SessionCookie(r, "abc", exp).Secure)
	assert.Equal(t, -1, ClearSessionCookie(r).MaxAge)
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(32)
	require.NoError(t, err)
	b, err := GenerateToken(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
