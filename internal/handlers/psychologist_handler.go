package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"emotiva/internal/models"
	"emotiva/internal/service"
)

// PsychologistHandler serves the psychologist side of shared reports.
type PsychologistHandler struct {
	psychologists *service.PsychologistService
	sharing       *service.SharingService
	loc           *time.Location
	logger        *slog.Logger
	now           func() time.Time
}

func NewPsychologistHandler(psychologists *service.PsychologistService, sharing *service.SharingService, loc *time.Location, logger *slog.Logger) *PsychologistHandler {
	return &PsychologistHandler{
		psychologists: psychologists,
		sharing:       sharing,
		loc:           loc,
		logger:        logger,
		now:           time.Now,
	}
}

func (h *PsychologistHandler) Profile(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	profile, err := h.psychologists.Profile(r.Context(), sess.User.ID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *PsychologistHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	var in service.PsychologistProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	profile, err := h.psychologists.SaveProfile(r.Context(), sess.User.ID, in)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Invites lists shares still waiting for an answer.
func (h *PsychologistHandler) Invites(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	invites, err := h.sharing.Invites(r.Context(), sess.User.ID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (h *PsychologistHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

func (h *PsychologistHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *PsychologistHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	share, err := h.sharing.Respond(r.Context(), sess.User.ID, id, accept)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, share)
}

// Reports lists accepted shares.
func (h *PsychologistHandler) Reports(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	reports, err := h.sharing.Reports(r.Context(), sess.User.ID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *PsychologistHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	day, err := service.ParseDay(r.URL.Query().Get("date"), h.loc, h.now())
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	report, err := h.sharing.WeeklyForPsychologist(r.Context(), sess.User.ID, id, models.LocalMidnight(day, h.loc))
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *PsychologistHandler) Revoke(w http.ResponseWriter, r *http.Request) {
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
