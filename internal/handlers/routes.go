package handlers

import (
	"net/http"

	"emotiva/internal/models"
)

// Handlers groups every HTTP handler the server mounts.
type Handlers struct {
	Health        *HealthHandler
	Auth          *AuthHandler
	Dashboard     *DashboardHandler
	Guardian      *GuardianHandler
	Notifications *NotificationHandler
	Psychologist  *PsychologistHandler
	School        *SchoolHandler
	Subscription  *SubscriptionHandler
}

// Register mounts the API on mux.
func Register(mux *http.ServeMux, m *Middleware, h Handlers) {
	guardian := func(next http.HandlerFunc) http.HandlerFunc {
		return m.ProtectedRole(next, models.RoleGuardian)
	}
	psychologist := func(next http.HandlerFunc) http.HandlerFunc {
		return m.ProtectedRole(next, models.RolePsychologist)
	}
	school := func(next http.HandlerFunc) http.HandlerFunc {
		return m.ProtectedRole(next, models.RoleSchool)
	}

	// Public routes
	mux.HandleFunc("GET /healthz/live", h.Health.Live)
	mux.HandleFunc("GET /healthz/ready", h.Health.Ready)
	mux.HandleFunc("POST /api/auth/register", m.RateLimit(h.Auth.Register))
	mux.HandleFunc("POST /api/auth/login", m.RateLimit(h.Auth.Login))
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.HandleFunc("POST /api/auth/password/forgot", m.RateLimit(h.Auth.ForgotPassword))
	mux.HandleFunc("POST /api/auth/password/reset", m.RateLimit(h.Auth.ResetPassword))
	mux.HandleFunc("GET /auth/{provider}/start", h.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", h.Auth.OAuthCallback)
	mux.HandleFunc("POST /api/webhooks/stripe", h.Subscription.Webhook)

	// Any signed-in account
	mux.HandleFunc("GET /api/me", m.RequireAuth(h.Auth.Me))
	mux.HandleFunc("GET /api/dashboard", m.RequireAuth(h.Dashboard.Dashboard))
	mux.HandleFunc("GET /api/dashboard/stream", m.RequireAuth(h.Dashboard.Stream))
	mux.HandleFunc("GET /api/notifications", m.RequireAuth(h.Notifications.List))
	mux.HandleFunc("POST /api/notifications/{id}/read", m.Protected(h.Notifications.MarkRead))
	mux.HandleFunc("GET /api/subscription", m.RequireAuth(h.Subscription.Status))
	mux.HandleFunc("POST /api/subscription/checkout", m.Protected(h.Subscription.Checkout))
	mux.HandleFunc("POST /api/subscription/portal", m.Protected(h.Subscription.Portal))

	// Guardian routes
	mux.HandleFunc("PUT /api/dashboard/selected-child", guardian(h.Dashboard.SelectChild))
	mux.HandleFunc("GET /api/children", guardian(h.Guardian.ListChildren))
	mux.HandleFunc("POST /api/children", guardian(h.Guardian.CreateChildren))
	mux.HandleFunc("PUT /api/children/{id}", guardian(h.Guardian.UpdateChild))
	mux.HandleFunc("DELETE /api/children/{id}", guardian(h.Guardian.DeleteChild))
	mux.HandleFunc("GET /api/children/{id}/checkins", guardian(h.Guardian.ListCheckins))
	mux.HandleFunc("POST /api/children/{id}/checkins", guardian(h.Guardian.CreateCheckin))
	mux.HandleFunc("GET /api/children/{id}/weekly", guardian(h.Guardian.Weekly))
	mux.HandleFunc("GET /api/children/{id}/weekly.pdf", guardian(h.Guardian.WeeklyPDF))
	mux.HandleFunc("GET /api/children/{id}/shares", guardian(h.Guardian.ListShares))
	mux.HandleFunc("POST /api/children/{id}/shares", guardian(h.Guardian.CreateShare))
	mux.HandleFunc("DELETE /api/shares/{id}", guardian(h.Guardian.RevokeShare))
	mux.HandleFunc("GET /api/alerts", guardian(h.Guardian.Alerts))

	// Psychologist routes
	mux.HandleFunc("GET /api/psychologist/profile", psychologist(h.Psychologist.Profile))
	mux.HandleFunc("PUT /api/psychologist/profile", psychologist(h.Psychologist.SaveProfile))
	mux.HandleFunc("GET /api/psychologist/invites", psychologist(h.Psychologist.Invites))
	mux.HandleFunc("POST /api/psychologist/invites/{id}/accept", psychologist(h.Psychologist.Accept))
	mux.HandleFunc("POST /api/psychologist/invites/{id}/decline", psychologist(h.Psychologist.Decline))
	mux.HandleFunc("GET /api/psychologist/reports", psychologist(h.Psychologist.Reports))
	mux.HandleFunc("GET /api/psychologist/reports/{id}/weekly", psychologist(h.Psychologist.Weekly))
	mux.HandleFunc("POST /api/psychologist/reports/{id}/revoke", psychologist(h.Psychologist.Revoke))

	// School routes
	mux.HandleFunc("GET /api/school/profile", school(h.School.Profile))
	mux.HandleFunc("PUT /api/school/profile", school(h.School.SaveProfile))
	mux.HandleFunc("GET /api/school/classes", school(h.School.ListClasses))
	mux.HandleFunc("POST /api/school/classes", school(h.School.CreateClass))
	mux.HandleFunc("GET /api/school/classes/{id}", school(h.School.GetClass))
	mux.HandleFunc("PUT /api/school/classes/{id}", school(h.School.UpdateClass))
	mux.HandleFunc("DELETE /api/school/classes/{id}", school(h.School.DeleteClass))
	mux.HandleFunc("POST /api/school/classes/{id}/students", school(h.School.CreateStudent))
	mux.HandleFunc("PUT /api/school/students/{id}", school(h.School.UpdateStudent))
	mux.HandleFunc("DELETE /api/school/students/{id}", school(h.School.DeleteStudent))
	mux.HandleFunc("POST /api/school/students/{id}/checkins", school(h.School.RecordCheckin))
	mux.HandleFunc("POST /api/school/students/{id}/invite", school(h.School.InviteParent))
	mux.HandleFunc("GET /api/school/dashboard", school(h.School.Dashboard))
	mux.HandleFunc("GET /api/school/reports", school(h.School.Report))
}
