package models

import "time"

// Role discriminates what a profile can see and do.
type Role string

const (
	RoleGuardian     Role = "guardian"
	RoleSchool       Role = "school"
	RolePsychologist Role = "psychologist"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleGuardian, RoleSchool, RolePsychologist:
		return true
	}
	return false
}

// User is an account profile: guardian, school or psychologist.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	OAuthSubject  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// PasswordResetToken represents a token for password reset
type PasswordResetToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	Used      bool
}

// IsExpired checks if the reset token has expired
func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
