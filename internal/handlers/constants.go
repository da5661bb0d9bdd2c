package handlers

const (
	SelectedChildCookieName = "selected_child"

	// StartPath is where an unauthenticated client is sent to sign in again.
	StartPath = "/"

	ErrInvalidJSON         = "Invalid JSON body"
	ErrInvalidID           = "Invalid id"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests"
	ErrInvalidCSRF         = "Invalid CSRF token"
)
