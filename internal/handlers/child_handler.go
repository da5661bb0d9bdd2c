package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/service"
)

// GuardianHandler serves a guardian's children, their check-ins, alerts,
// weekly reports and shares.
type GuardianHandler struct {
	children      *service.ChildService
	checkins      *service.CheckinService
	alerts        *service.AlertService
	weekly        *service.WeeklyService
	sharing       *service.SharingService
	subscriptions *service.SubscriptionService
	logger        *slog.Logger
	now           func() time.Time
}

type GuardianDeps struct {
	Children      *service.ChildService
	Checkins      *service.CheckinService
	Alerts        *service.AlertService
	Weekly        *service.WeeklyService
	Sharing       *service.SharingService
	Subscriptions *service.SubscriptionService
	Logger        *slog.Logger
}

func NewGuardianHandler(deps GuardianDeps) *GuardianHandler {
	return &GuardianHandler{
		children:      deps.Children,
		checkins:      deps.Checkins,
		alerts:        deps.Alerts,
		weekly:        deps.Weekly,
		sharing:       deps.Sharing,
		subscriptions: deps.Subscriptions,
		logger:        deps.Logger,
		now:           time.Now,
	}
}

type shareRequest struct {
	Code string `json:"code"`
}

func (h *GuardianHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	children, err := h.children.List(r.Context(), sess.User.ID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}

// CreateChildren accepts a single child object or an array of them.
func (h *GuardianHandler) CreateChildren(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	inputs, err := parseChildInputs(raw)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	created, err := h.children.CreateBatch(r.Context(), sess.User.ID, inputs)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func parseChildInputs(raw json.RawMessage) ([]service.ChildInput, error) {
	trimmed := bytes.TrimSpace(raw)
	var inputs []service.ChildInput
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, domain.NewValidationError("body", ErrInvalidJSON)
		}
		return inputs, nil
	}
	var one service.ChildInput
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, domain.NewValidationError("body", ErrInvalidJSON)
	}
	return []service.ChildInput{one}, nil
}

func (h *GuardianHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	var in service.ChildInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	child, err := h.children.Update(r.Context(), sess.User.ID, id, in)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, child)
}

func (h *GuardianHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	if err := h.children.Delete(r.Context(), sess.User.ID, id); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if sess.SelectedChildID == id {
		http.SetCookie(w, clearSelectedChildCookie(r))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GuardianHandler) ListCheckins(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	checkins, err := h.checkins.List(r.Context(), sess.User.ID, id, queryInt(r, "limit", 0))
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, checkins)
}

func (h *GuardianHandler) CreateCheckin(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	var in service.CheckinInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	checkin, err := h.checkins.Create(r.Context(), sess.User.ID, id, in)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkin)
}

// Alerts recomputes alerts across all of the guardian's children.
func (h *GuardianHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	children, err := h.children.List(r.Context(), sess.User.ID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	alerts, err := h.alerts.AlertsFor(r.Context(), children, h.now())
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *GuardianHandler) weeklyReport(r *http.Request) (*models.WeeklyReport, error) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	if _, err := h.children.Owned(r.Context(), sess.User.ID, id); err != nil {
		return nil, err
	}
	day, err := service.ParseDay(r.URL.Query().Get("date"), h.weekly.Location(), h.now())
	if err != nil {
		return nil, err
	}
	return h.weekly.Report(r.Context(), id, models.LocalMidnight(day, h.weekly.Location()))
}

// Weekly returns the report for the week containing ?date (default today).
func (h *GuardianHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	report, err := h.weeklyReport(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// WeeklyPDF renders the same report as Weekly for premium accounts.
func (h *GuardianHandler) WeeklyPDF(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	if err := h.subscriptions.RequirePremium(r.Context(), sess.User.Email); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	report, err := h.weeklyReport(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	pdf, err := service.RenderWeeklyPDF(report)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	filename := fmt.Sprintf("weekly-%d-%s.pdf", report.ChildID, report.WeekStart.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *GuardianHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	shares, err := h.sharing.SharesForChild(r.Context(), sess.User.ID, id)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

// CreateShare invites a psychologist, identified by public code, to follow a child.
func (h *GuardianHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	var in shareRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	share, err := h.sharing.Share(r.Context(), sess.User, id, in.Code)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

// RevokeShare is open to both sides of a share.
func (h *GuardianHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	share, err := h.sharing.Revoke(r.Context(), sess.User, id)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, share)
}
