package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"emotiva/internal/appctx"
	"emotiva/internal/domain"
	"emotiva/internal/realtime"
	"emotiva/internal/security"
	"emotiva/internal/service"
)

const (
	selectedChildMaxAge = 365 * 24 * time.Hour
	streamHeartbeat     = 25 * time.Second
)

// DashboardHandler serves the dashboard snapshot and its live stream.
type DashboardHandler struct {
	dashboard *service.DashboardService
	children  *service.ChildService
	hub       *realtime.Hub
	logger    *slog.Logger
	heartbeat time.Duration
}

func NewDashboardHandler(dashboard *service.DashboardService, children *service.ChildService, hub *realtime.Hub, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		children:  children,
		hub:       hub,
		logger:    logger,
		heartbeat: streamHeartbeat,
	}
}

type selectChildRequest struct {
	ChildID int64 `json:"child_id"`
}

// Dashboard loads the full dashboard once.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := appctx.SessionFrom(r.Context())
	var requested int64
	if sess != nil {
		requested = sess.SelectedChildID
	}

	view, err := h.dashboard.Load(r.Context(), sess)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	if view.SelectedChildID != requested {
		h.rememberSelection(w, r, view.SelectedChildID)
	}
	writeJSON(w, http.StatusOK, view)
}

// Stream sends the dashboard as Server-Sent Events: the first load, then a
// fresh load after every change to the guardian's children. The hub
// subscription only starts once the first load has succeeded and ends with
// the request.
func (h *DashboardHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := appctx.SessionFrom(ctx)

	view, err := h.dashboard.Load(ctx, sess)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	seq := 1
	if err := writeEvent(w, rc, seq, "dashboard", view); err != nil {
		return
	}

	events, unsubscribe := h.hub.Subscribe(sess.User.ID)
	defer unsubscribe()

	log := h.logger.With(slog.Int64("user_id", sess.User.ID), slog.String("request_id", appctx.RequestIDFrom(ctx)))
	log.DebugContext(ctx, "dashboard stream opened")
	defer log.DebugContext(ctx, "dashboard stream closed")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			log.DebugContext(ctx, "dashboard reload", slog.String("kind", string(ev.Kind)), slog.Int64("child_id", ev.ChildID))

			view, err := h.dashboard.Load(ctx, sess)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				status, body := classify(err)
				log.WarnContext(ctx, "dashboard reload failed", slog.Int("status", status), slog.String("error", err.Error()))
				seq++
				if writeEvent(w, rc, seq, "error", body) != nil || errors.Is(err, domain.ErrUnauthorized) {
					return
				}
				continue
			}
			seq++
			if err := writeEvent(w, rc, seq, "dashboard", view); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, id int, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, name, data); err != nil {
		return err
	}
	return rc.Flush()
}

// SelectChild stores the selected child in a cookie after checking ownership.
func (h *DashboardHandler) SelectChild(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	var in selectChildRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if in.ChildID <= 0 {
		respondWithError(w, r, h.logger, domain.NewValidationError("child_id", "is required"))
		return
	}

	if _, err := h.children.Owned(r.Context(), sess.User.ID, in.ChildID); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	h.rememberSelection(w, r, in.ChildID)
	writeJSON(w, http.StatusOK, selectChildRequest{ChildID: in.ChildID})
}

func (h *DashboardHandler) rememberSelection(w http.ResponseWriter, r *http.Request, childID int64) {
	if childID == 0 {
		http.SetCookie(w, clearSelectedChildCookie(r))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SelectedChildCookieName,
		Value:    strconv.FormatInt(childID, 10),
		Path:     "/",
		MaxAge:   int(selectedChildMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSelectedChildCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     SelectedChildCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
