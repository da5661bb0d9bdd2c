// Package appctx carries the per-request identity through context.Context.
package appctx

import (
	"context"

	"emotiva/internal/models"
)

type ctxKey string

const (
	sessionKey   ctxKey = "session"
	requestIDKey ctxKey = "request_id"
)

// Session is the authenticated caller of a request. SessionID is empty when
// the caller authenticated with a bearer token.
type Session struct {
	User            *models.User
	SessionID       string
	SelectedChildID int64
}

// UserID returns 0 for an anonymous session.
func (s *Session) UserID() int64 {
	if s == nil || s.User == nil {
		return 0
	}
	return s.User.ID
}

// WithSession stores the session in the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom extracts the session, reporting false when none is present.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	if !ok || s == nil || s.User == nil {
		return nil, false
	}
	return s, true
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns an empty string if absent.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
