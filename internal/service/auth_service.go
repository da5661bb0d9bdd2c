package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"emotiva/internal/credentials"
	"emotiva/internal/database"
	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/repository"
	"emotiva/internal/security"
	"emotiva/internal/validation"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	ErrSessionNotFound    = fmt.Errorf("session not found: %w", domain.ErrUnauthorized)
	ErrSessionExpired     = fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	ErrInvalidResetToken  = domain.NewValidationError("token", "invalid or expired reset token")
)

const resetTokenTTL = time.Hour

// Mailer sends the transactional emails of the service.
type Mailer interface {
	SendWelcome(ctx context.Context, toEmail, toName string) error
	SendPasswordReset(ctx context.Context, toEmail, toName, token string) error
	SendParentInvite(ctx context.Context, toEmail, guardianName, studentName, schoolName, code string) error
}

// RegisterInput is the payload of a new account.
type RegisterInput struct {
	Name       string `json:"name" validate:"required,min=2,max=120"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Role       string `json:"role" validate:"omitempty,role"`
	InviteCode string `json:"invite_code" validate:"omitempty,max=32"`
	CRP        string `json:"crp" validate:"required_if=Role psychologist,max=32"`
	Specialty  string `json:"specialty" validate:"max=120"`
	Phone      string `json:"phone" validate:"max=32"`
}

// AuthService handles registration, sessions, bearer tokens and password resets.
type AuthService struct {
	db              *database.DB
	users           *repository.UserRepository
	invitations     *repository.InvitationRepository
	mailer          Mailer
	tokens          *security.TokenManager
	sessionDuration time.Duration
	logger          *slog.Logger
}

func NewAuthService(db *database.DB, mailer Mailer, tokens *security.TokenManager, sessionDuration time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		db:              db,
		users:           repository.NewUserRepository(db),
		invitations:     repository.NewInvitationRepository(db),
		mailer:          mailer,
		tokens:          tokens,
		sessionDuration: sessionDuration,
		logger:          logger,
	}
}

// Register creates an account. Psychologists also get a profile with a
// public code, and an invite code is consumed in the same transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	role := models.Role(in.Role)
	if role == "" {
		role = models.RoleGuardian
	}

	var invite *models.Invitation
	if in.InviteCode != "" {
		code := credentials.NormalizeCode(in.InviteCode)
		inv, err := s.invitations.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if inv == nil || !inv.IsValid() {
			return nil, domain.NewValidationError("invite_code", "invitation is invalid or expired")
		}
		if role != models.RoleGuardian {
			return nil, domain.NewValidationError("role", "invitations are for guardians")
		}
		invite = inv
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Email: in.Email, Name: in.Name, Role: role, PasswordHash: hash}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := repository.NewUserRepository(tx).CreateUser(ctx, user); err != nil {
			return err
		}
		if role == models.RolePsychologist {
			profile := &models.Psychologist{
				UserID:    user.ID,
				Name:      in.Name,
				CRP:       strings.TrimSpace(in.CRP),
				Specialty: in.Specialty,
				Phone:     in.Phone,
			}
			if err := createPsychologistProfile(ctx, repository.NewPsychologistRepository(tx), profile); err != nil {
				return err
			}
		}
		if invite != nil {
			return repository.NewInvitationRepository(tx).MarkUsed(ctx, invite.Code, user.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrAlreadyExists)
		}
		return nil, err
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
		s.logger.WarnContext(ctx, "welcome email failed", slog.Int64("user_id", user.ID), slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID), slog.String("role", string(role)))
	return user, nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !security.CheckPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.users.CreateSession(ctx, security.GenerateSessionID(), user.ID, time.Now().Add(s.sessionDuration))
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// IssueToken signs a bearer token for API clients.
func (s *AuthService) IssueToken(user *models.User) (string, time.Duration, error) {
	tok, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return "", 0, err
	}
	return tok, s.tokens.TTL(), nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.users.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		_ = s.users.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// UserFromToken resolves a bearer token to its user.
func (s *AuthService) UserFromToken(ctx context.Context, token string) (*models.User, error) {
	userID, _, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrUnauthorized)
	}
	return user, nil
}

// Profile returns the user row for id.
func (s *AuthService) Profile(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.users.DeleteSession(ctx, sessionID)
}

// Cleanup removes expired sessions and stale reset tokens.
func (s *AuthService) Cleanup(ctx context.Context) error {
	now := time.Now()
	sessions, err := s.users.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return err
	}
	tokens, err := s.users.DeleteExpiredResetTokens(ctx, now)
	if err != nil {
		return err
	}
	invites, err := s.invitations.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "housekeeping done",
		slog.Int64("sessions", sessions),
		slog.Int64("reset_tokens", tokens),
		slog.Int64("invitations", invites))
	return nil
}

// OAuthLogin signs in by provider identity, linking an existing account with
// the same email or creating a guardian account.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, domain.NewValidationError("provider", "missing oauth provider information")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, nil, err
	}

	if user == nil {
		existing, err := s.users.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case existing != nil && existing.OAuthProvider != "" && existing.OAuthProvider != provider:
			return nil, nil, fmt.Errorf("email linked to %s: %w", existing.OAuthProvider, domain.ErrAlreadyExists)
		case existing != nil:
			if existing.OAuthProvider == "" {
				if err := s.users.LinkOAuthProvider(ctx, existing.ID, provider, subject); err != nil {
					return nil, nil, err
				}
			}
			user = existing
		default:
			if name == "" {
				name, _, _ = strings.Cut(email, "@")
			}
			user = &models.User{
				Email:         email,
				Name:          name,
				Role:          models.RoleGuardian,
				OAuthProvider: provider,
				OAuthSubject:  subject,
			}
			if err := s.users.CreateUser(ctx, user); err != nil {
				return nil, nil, err
			}
			if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
				s.logger.WarnContext(ctx, "welcome email failed", slog.Int64("user_id", user.ID), slog.String("error", err.Error()))
			}
		}
	}

	session, err := s.users.CreateSession(ctx, security.GenerateSessionID(), user.ID, time.Now().Add(s.sessionDuration))
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// RequestPasswordReset mails a reset link. Unknown emails and OAuth-only
// accounts succeed silently so the endpoint does not reveal who is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.PasswordHash == "" {
		return nil
	}

	token, err := security.GenerateToken(32)
	if err != nil {
		return err
	}
	if err := s.users.CreateResetToken(ctx, token, user.ID, time.Now().Add(resetTokenTTL)); err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, user.Email, user.Name, token)
}

// ResetPassword consumes a reset token, sets the new password and signs the
// user out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	rt, err := s.users.GetResetToken(ctx, token)
	if err != nil {
		return err
	}
	if rt == nil || rt.Used || rt.IsExpired() {
		return ErrInvalidResetToken
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		users := repository.NewUserRepository(tx)
		if err := users.UpdatePassword(ctx, rt.UserID, hash); err != nil {
			return err
		}
		if err := users.MarkResetTokenUsed(ctx, token); err != nil {
			return err
		}
		return users.DeleteUserSessions(ctx, rt.UserID)
	})
}
