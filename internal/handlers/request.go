package handlers

import (
	"net/http"
	"strconv"

	"emotiva/internal/appctx"
	"emotiva/internal/domain"
)

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(name, ErrInvalidID)
	}
	return id, nil
}

// mustSession returns the session attached by RequireAuth. Routes without
// RequireAuth never call it.
func mustSession(r *http.Request) *appctx.Session {
	sess, ok := appctx.SessionFrom(r.Context())
	if !ok {
		panic("handlers: route is missing RequireAuth")
	}
	return sess
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
