package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"emotiva/internal/domain"
	"emotiva/internal/service"
)

const maxWebhookBytes = 64 << 10

type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
	logger        *slog.Logger
}

func NewSubscriptionHandler(subscriptions *service.SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, logger: logger}
}

type redirectResponse struct {
	URL string `json:"url"`
}

func (h *SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	sub, err := h.subscriptions.Status(r.Context(), sess.User.Email)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionView{
		Subscribed:      sub.Subscribed,
		Tier:            sub.Tier,
		SubscriptionEnd: sub.SubscriptionEnd,
		Premium:         sub.CanAccessPremium(),
	})
}

func (h *SubscriptionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	url, err := h.subscriptions.CheckoutURL(r.Context(), sess.User.Email)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, redirectResponse{URL: url})
}

func (h *SubscriptionHandler) Portal(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	url, err := h.subscriptions.PortalURL(r.Context(), sess.User.Email)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, redirectResponse{URL: url})
}

// Webhook receives Stripe events. Anything Stripe should not retry is
// answered with 2xx or 4xx.
func (h *SubscriptionHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		respondWithError(w, r, h.logger, domain.NewValidationError("body", "payload too large"))
		return
	}

	if err := h.subscriptions.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
