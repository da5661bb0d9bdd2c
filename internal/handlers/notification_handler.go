package handlers

import (
	"log/slog"
	"net/http"

	"emotiva/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	items, err := h.notifications.List(r.Context(), sess.User.ID, queryInt(r, "limit", 0))
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if err := h.notifications.MarkRead(r.Context(), sess.User.ID, id); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
