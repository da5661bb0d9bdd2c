package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"emotiva/internal/appctx"
	"emotiva/internal/models"
	"emotiva/internal/security"
	"emotiva/internal/service"
	"emotiva/internal/validation"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	subscriptions        *service.SubscriptionService
	csrf                 *security.CSRF
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	logger               *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, subscriptions *service.SubscriptionService, csrf *security.CSRF, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		subscriptions:        subscriptions,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		logger:               logger,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// sessionResponse is returned on sign-in. Browser clients use the cookie and
// csrf_token; API clients use access_token.
type sessionResponse struct {
	User        *models.User `json:"user"`
	CSRFToken   string       `json:"csrf_token"`
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"`
}

type subscriptionView struct {
	Subscribed      bool       `json:"subscribed"`
	Tier            *string    `json:"subscription_tier"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
	Premium         bool       `json:"premium"`
}

type meResponse struct {
	User         *models.User     `json:"user"`
	Subscription subscriptionView `json:"subscription"`
	CSRFToken    string           `json:"csrf_token,omitempty"`
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	if _, err := h.authService.Register(r.Context(), in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	session, user, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	h.startSession(w, r, http.StatusCreated, session, user)
}

// Login handles email and password sign-in
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if err := validation.Struct(in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	session, user, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	h.startSession(w, r, http.StatusOK, session, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, session *models.Session, user *models.User) {
	token, ttl, err := h.authService.IssueToken(user)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	csrfToken, err := h.csrf.Token(session.ID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, security.SessionCookie(r, session.ID, session.ExpiresAt))
	writeJSON(w, status, sessionResponse{
		User:        user,
		CSRFToken:   csrfToken,
		AccessToken: token,
		ExpiresIn:   int(ttl.Seconds()),
	})
}

// Logout deletes the session and clears cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.WarnContext(r.Context(), "logout failed", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, security.ClearSessionCookie(r))
	http.SetCookie(w, clearSelectedChildCookie(r))
	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword always answers 202 so callers cannot probe for accounts.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotPasswordRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if err := validation.Struct(in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), in.Email); err != nil {
		h.logger.ErrorContext(r.Context(), "password reset request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the email is registered, a reset link is on its way",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetPasswordRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if err := validation.Struct(in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), in.Token, in.Password); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's profile and subscription status.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	sub, err := h.subscriptions.Status(r.Context(), sess.User.Email)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	resp := meResponse{
		User: sess.User,
		Subscription: subscriptionView{
			Subscribed:      sub.Subscribed,
			Tier:            sub.Tier,
			SubscriptionEnd: sub.SubscriptionEnd,
			Premium:         sub.CanAccessPremium(),
		},
	}
	resp.CSRFToken = h.csrfFor(sess)
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) csrfFor(sess *appctx.Session) string {
	if sess.SessionID == "" {
		return ""
	}
	token, err := h.csrf.Token(sess.SessionID)
	if err != nil {
		return ""
	}
	return token
}
