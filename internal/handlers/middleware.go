package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"emotiva/internal/appctx"
	"emotiva/internal/config"
	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/security"
)

const requestIDHeader = "X-Request-ID"

type logFieldsKey struct{}

// requestLog is filled in by inner middleware so the access log can report
// who made the request.
type requestLog struct {
	userID int64
}

// sessionResolver turns a cookie session or bearer token into a user.
type sessionResolver interface {
	ValidateSession(ctx context.Context, sessionID string) (*models.User, error)
	UserFromToken(ctx context.Context, token string) (*models.User, error)
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	auth    sessionResolver
	csrf    *security.CSRF
	limiter *security.RateLimiter
	logger  *slog.Logger
}

func NewMiddleware(auth sessionResolver, csrf *security.CSRF, limiter *security.RateLimiter, logger *slog.Logger) *Middleware {
	return &Middleware{auth: auth, csrf: csrf, limiter: limiter, logger: logger}
}

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestID propagates an incoming X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(appctx.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer for flushing.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// Logger writes one access log line per request.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			fields := &requestLog{}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), logFieldsKey{}, fields)))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", appctx.RequestIDFrom(r.Context())),
			}
			if fields.userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", fields.userID))
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http request", attrs...)
		})
	}
}

// Recovery turns a panic into a 500 and logs the stack.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					logger.ErrorContext(r.Context(), "panic recovered",
						slog.Any("panic", p),
						slog.String("path", r.URL.Path),
						slog.String("request_id", appctx.RequestIDFrom(r.Context())),
						slog.String("stack", string(debug.Stack())))
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: ErrInternalServerError})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflight requests and decorates responses for allowed origins.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := splitList(cfg.AllowedOrigins)
	wildcard := slices.Contains(origins, "*")
	methods := strings.Join(splitList(cfg.AllowedMethods), ", ")
	headers := strings.Join(splitList(cfg.AllowedHeaders), ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!wildcard && !slices.Contains(origins, origin)) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if wildcard && !cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RequireAuth accepts a bearer token or the session cookie and attaches an
// appctx.Session to the request.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.authenticate(r)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				respondWithError(w, r, m.logger, err)
				return
			}
			if _, cookieErr := r.Cookie(security.SessionCookieName); cookieErr == nil {
				http.SetCookie(w, security.ClearSessionCookie(r))
			}
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized, Link: StartPath})
			return
		}

		if c, err := r.Cookie(SelectedChildCookieName); err == nil {
			if id, err := strconv.ParseInt(c.Value, 10, 64); err == nil && id > 0 {
				sess.SelectedChildID = id
			}
		}
		if fields, ok := r.Context().Value(logFieldsKey{}).(*requestLog); ok {
			fields.userID = sess.User.ID
		}

		next(w, r.WithContext(appctx.WithSession(r.Context(), sess)))
	}
}

func (m *Middleware) authenticate(r *http.Request) (*appctx.Session, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return nil, domain.ErrUnauthorized
		}
		user, err := m.auth.UserFromToken(r.Context(), token)
		if err != nil {
			return nil, err
		}
		return &appctx.Session{User: user}, nil
	}

	cookie, err := r.Cookie(security.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, domain.ErrUnauthorized
	}
	user, err := m.auth.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}
	return &appctx.Session{User: user, SessionID: cookie.Value}, nil
}

// RequireRole must run inside RequireAuth.
func (m *Middleware) RequireRole(roles ...models.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := appctx.SessionFrom(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized, Link: StartPath})
				return
			}
			if !slices.Contains(roles, sess.User.Role) {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "This account cannot access this resource"})
				return
			}
			next(w, r)
		}
	}
}

// CSRFProtect requires a valid X-CSRF-Token on unsafe requests authenticated
// by cookie. Bearer-token clients are exempt.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}
		sess, ok := appctx.SessionFrom(r.Context())
		if ok && sess.SessionID != "" && !m.csrf.Valid(sess.SessionID, r.Header.Get(security.CSRFHeader)) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: ErrInvalidCSRF})
			return
		}
		next(w, r)
	}
}

// RateLimit throttles by client address.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: ErrTooManyRequests})
			return
		}
		next(w, r)
	}
}

// Protected is RequireAuth followed by CSRFProtect.
func (m *Middleware) Protected(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(m.CSRFProtect(next))
}

// ProtectedRole is Protected restricted to roles.
func (m *Middleware) ProtectedRole(next http.HandlerFunc, roles ...models.Role) http.HandlerFunc {
	return m.RequireAuth(m.CSRFProtect(m.RequireRole(roles...)(next)))
}
