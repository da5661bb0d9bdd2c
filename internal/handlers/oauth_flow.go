package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"emotiva/internal/security"
)

const (
	oauthCookieTTL    = 10 * time.Minute
	oauthLandingPath  = "/dashboard"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

// GoogleProvider builds the Google sign-in provider. It is inert while the
// client id or secret is empty.
func GoogleProvider(clientID, clientSecret string) OAuthProvider {
	return OAuthProvider{
		Name: "google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
	}
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		h.oauthError(w, r, "OAuth provider not configured", nil)
		return
	}

	state := security.GenerateSessionID()
	setTempCookie(w, r, "oauth_state", state, oauthCookieTTL)
	setTempCookie(w, r, "oauth_provider", providerKey, oauthCookieTTL)

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	http.Redirect(w, r, config.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		h.oauthError(w, r, "OAuth provider not configured", nil)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		h.oauthError(w, r, "Missing authorization code", nil)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		h.oauthError(w, r, "Invalid OAuth state", nil)
		return
	}
	if providerCookie, err := r.Cookie("oauth_provider"); err == nil && providerCookie.Value != providerKey {
		h.oauthError(w, r, "OAuth provider mismatch", nil)
		return
	}

	clearTempCookie(w, r, "oauth_state")
	clearTempCookie(w, r, "oauth_provider")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.oauthError(w, r, "Failed to exchange OAuth code", err)
		return
	}

	info, err := fetchOAuthUser(ctx, provider, token)
	if err != nil {
		h.oauthError(w, r, "Failed to fetch OAuth profile", err)
		return
	}

	session, _, err := h.authService.OAuthLogin(r.Context(), providerKey, info.Subject, info.Email, info.Name)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, security.SessionCookie(r, session.ID, session.ExpiresAt))
	http.Redirect(w, r, oauthLandingPath, http.StatusSeeOther)
}

func fetchOAuthUser(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: %w", provider.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: status %d", provider.Name, resp.StatusCode)
	}

	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		VerifiedEmail *bool  `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info: %w", provider.Name, err)
	}
	if payload.VerifiedEmail != nil && !*payload.VerifiedEmail {
		return oauthUserInfo{}, errors.New("email address is not verified")
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func (h *AuthHandler) oauthError(w http.ResponseWriter, r *http.Request, message string, cause error) {
	if cause != nil {
		h.logger.WarnContext(r.Context(), "oauth failed", slog.String("reason", message), slog.String("error", cause.Error()))
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, Link: StartPath})
}

func setTempCookie(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
