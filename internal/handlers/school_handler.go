package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/service"
)

const defaultReportDays = 30

// SchoolHandler serves school accounts: profile, classes, students, their
// check-ins, reports and parent invitations.
type SchoolHandler struct {
	schools *service.SchoolService
	loc     *time.Location
	logger  *slog.Logger
	now     func() time.Time
}

func NewSchoolHandler(schools *service.SchoolService, loc *time.Location, logger *slog.Logger) *SchoolHandler {
	return &SchoolHandler{schools: schools, loc: loc, logger: logger, now: time.Now}
}

type inviteRequest struct {
	Email string `json:"email"`
}

type classResponse struct {
	Class    any `json:"class"`
	Students any `json:"students"`
}

func (h *SchoolHandler) Profile(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	school, err := h.schools.Profile(r.Context(), sess.User.ID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, school)
}

func (h *SchoolHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	var in service.SchoolProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	school, err := h.schools.SaveProfile(r.Context(), sess.User.ID, in)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, school)
}

func (h *SchoolHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	classes, err := h.schools.Classes(r.Context(), sess.User.ID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

func (h *SchoolHandler) CreateClass(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	var in service.ClassInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	class, err := h.schools.CreateClass(r.Context(), sess.User.ID, in)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

// GetClass returns the class with its students.
func (h *SchoolHandler) GetClass(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	class, students, err := h.schools.Class(r.Context(), sess.User.ID, id)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, classResponse{Class: class, Students: students})
}

func (h *SchoolHandler) UpdateClass(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var in service.ClassInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	class, err := h.schools.UpdateClass(r.Context(), sess.User.ID, id, in)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (h *SchoolHandler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if err := h.schools.DeleteClass(r.Context(), sess.User.ID, id); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SchoolHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	classID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var in service.StudentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	student, err := h.schools.CreateStudent(r.Context(), sess.User.ID, classID, in)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (h *SchoolHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var in service.StudentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	student, err := h.schools.UpdateStudent(r.Context(), sess.User.ID, id, in)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *SchoolHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if err := h.schools.DeleteStudent(r.Context(), sess.User.ID, id); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SchoolHandler) RecordCheckin(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var in service.StudentCheckinInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	checkin, err := h.schools.RecordCheckin(r.Context(), sess.User.ID, id, in)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkin)
}

// InviteParent emails an invitation. The body is optional; without an email
// the student's guardian email is used.
func (h *SchoolHandler) InviteParent(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	var in inviteRequest
	if err := decodeOptionalJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	inv, err := h.schools.InviteParent(r.Context(), sess.User.ID, id, in.Email)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *SchoolHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	dash, err := h.schools.Dashboard(r.Context(), sess.User.ID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// Report covers ?from..?to (default the last 30 days), optionally one ?class_id.
func (h *SchoolHandler) Report(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	q := r.URL.Query()
	now := h.now()

	to, err := service.ParseDay(q.Get("to"), h.loc, now)
	if err != nil {
		respondWithError(w, r, h.logger, relabel(err, "to"))
		return
	}
	from := to.AddDate(0, 0, -(defaultReportDays - 1))
	if raw := q.Get("from"); raw != "" {
		if from, err = service.ParseDay(raw, h.loc, now); err != nil {
			respondWithError(w, r, h.logger, relabel(err, "from"))
			return
		}
	}

	var classID *int64
	if raw := q.Get("class_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, r, h.logger, domain.NewValidationError("class_id", ErrInvalidID))
			return
		}
		classID = &id
	}

	report, err := h.schools.Report(r.Context(), sess.User.ID, models.LocalMidnight(from, h.loc), models.LocalMidnight(to, h.loc), classID)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// relabel points a date validation error at the query parameter it came from.
func relabel(err error, field string) error {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	fields := make([]domain.FieldError, len(verr.Errors))
	for i, fe := range verr.Errors {
		fe.Field = field
		fields[i] = fe
	}
	return domain.NewValidationErrors(fields)
}
