package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"emotiva/internal/appctx"
	"emotiva/internal/domain"
	"emotiva/internal/service"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = domain.NewValidationError("body", "request body is empty")

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
	Link   string              `json:"link,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON document into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return domain.NewValidationError("body", ErrInvalidJSON)
	}
	if dec.More() {
		return domain.NewValidationError("body", "request body must contain a single JSON object")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}

// respondWithError maps err onto a status code. Only server-side failures
// are logged with their cause.
func respondWithError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", appctx.RequestIDFrom(r.Context())),
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorResponse) {
	var stageErr *service.StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case service.StageIdentity:
			return http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized, Link: StartPath}
		case service.StageProfile:
			return http.StatusInternalServerError, errorResponse{Error: "Could not load your profile"}
		}
	}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: "Validation failed", Fields: verr.Errors}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized, Link: StartPath}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "Forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "Not found"}
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorResponse{Error: conflictMessage(err)}
	case errors.Is(err, service.ErrPaymentsDisabled):
		return http.StatusServiceUnavailable, errorResponse{Error: "Payments are not configured"}
	case errors.Is(err, domain.ErrPaymentRequired):
		return http.StatusPaymentRequired, errorResponse{Error: "A premium subscription is required", Link: "/api/subscription/checkout"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: ErrInternalServerError}
	}
}

func conflictMessage(err error) string {
	if errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Sprintf("Already exists: %v", err)
	}
	return fmt.Sprintf("Conflict: %v", err)
}
