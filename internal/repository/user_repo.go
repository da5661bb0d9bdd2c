package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"emotiva/internal/database"
	"emotiva/internal/domain"
	"emotiva/internal/models"
)

// UserRepository handles database operations for users, sessions and
// password reset tokens.
type UserRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, name, role, oauth_provider, oauth_subject, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role,
		&u.OAuthProvider, &u.OAuthSubject, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return u, nil
}

// CreateUser inserts a user. Emails are stored lowercased.
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC()

	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO users (email, password_hash, name, role, oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.Name, string(u.Role), u.OAuthProvider, u.OAuthSubject, now, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", u.Email, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByOAuth retrieves a user by OAuth provider and subject
func (r *UserRepository) GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE oauth_provider = ? AND oauth_subject = ?`, provider, subject))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by oauth: %w", err)
	}
	return u, nil
}

// ListUsers returns every user, oldest first.
func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateProfile changes the display name.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// LinkOAuthProvider links an existing user to an OAuth provider. Fails if the
// user already has one.
func (r *UserRepository) LinkOAuthProvider(ctx context.Context, userID int64, provider, subject string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET oauth_provider = ?, oauth_subject = ?, updated_at = ?
		WHERE id = ? AND oauth_provider = ''`,
		provider, subject, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to link oauth provider: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read link result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("oauth provider: %w", domain.ErrConflict)
	}
	return nil
}

// CreateSession creates a new session for a user
func (r *UserRepository) CreateSession(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sessionID, userID, now, expiresAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &models.Session{ID: sessionID, UserID: userID, ExpiresAt: expiresAt, CreatedAt: now}, nil
}

// GetSession retrieves a session by ID
func (r *UserRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s := &models.Session{}
	err := r.db.QueryRow(ctx, `SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`, sessionID).
		Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *UserRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions logs a user out everywhere.
func (r *UserRepository) DeleteUserSessions(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and reports how many.
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// CreateResetToken stores a password reset token.
func (r *UserRepository) CreateResetToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (token, user_id, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		token, userID, expiresAt.UTC(), false, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

// GetResetToken returns nil when the token does not exist.
func (r *UserRepository) GetResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	t := &models.PasswordResetToken{}
	err := r.db.QueryRow(ctx, `
		SELECT token, user_id, expires_at, created_at, used
		FROM password_reset_tokens WHERE token = ?`, token).
		Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt, &t.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return t, nil
}

func (r *UserRepository) MarkResetTokenUsed(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `UPDATE password_reset_tokens SET used = ? WHERE token = ?`, true, token); err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	return nil
}

// DeleteExpiredResetTokens purges stale and used tokens.
func (r *UserRepository) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < ? OR used = ?`, now.UTC(), true)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return res.RowsAffected()
}
