package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"emotiva/internal/domain"
	"emotiva/internal/models"
)

const premiumPeriod = 30 * 24 * time.Hour

type subscriberStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	Upsert(ctx context.Context, s *models.Subscriber) error
}

// SubscriptionService mirrors Stripe billing state into subscribers and
// answers premium checks.
type SubscriptionService struct {
	subscribers subscriberStore
	gateway     PaymentGateway
	baseURL     string
	logger      *slog.Logger
	now         func() time.Time
}

func NewSubscriptionService(subscribers subscriberStore, gateway PaymentGateway, baseURL string, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		subscribers: subscribers,
		gateway:     gateway,
		baseURL:     baseURL,
		logger:      logger,
		now:         time.Now,
	}
}

// Status returns the billing state for email. Unknown emails get an empty,
// unsubscribed record.
func (s *SubscriptionService) Status(ctx context.Context, email string) (*models.Subscriber, error) {
	sub, err := s.subscribers.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &models.Subscriber{Email: email}, nil
	}
	return sub, nil
}

// IsPremium reports whether email currently has premium access.
func (s *SubscriptionService) IsPremium(ctx context.Context, email string) (bool, error) {
	sub, err := s.subscribers.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return sub.CanAccessPremium(), nil
}

// RequirePremium returns domain.ErrPaymentRequired unless email is premium.
func (s *SubscriptionService) RequirePremium(ctx context.Context, email string) error {
	ok, err := s.IsPremium(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPaymentRequired
	}
	return nil
}

// CheckoutURL starts a Stripe checkout for the premium plan.
func (s *SubscriptionService) CheckoutURL(ctx context.Context, email string) (string, error) {
	return s.gateway.CheckoutURL(ctx, email,
		s.baseURL+"/subscription?checkout=success",
		s.baseURL+"/subscription?checkout=cancel")
}

// PortalURL opens the Stripe customer portal for a known customer.
func (s *SubscriptionService) PortalURL(ctx context.Context, email string) (string, error) {
	sub, err := s.subscribers.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if sub == nil || sub.StripeCustomerID == "" {
		return "", fmt.Errorf("stripe customer for %s: %w", email, domain.ErrNotFound)
	}
	return s.gateway.PortalURL(ctx, sub.StripeCustomerID, s.baseURL+"/subscription")
}

// HandleWebhook verifies and applies a Stripe event. Unhandled event types
// are logged and ignored. A bad signature yields domain.ErrValidation.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if signature == "" {
		return domain.NewValidationError("stripe-signature", "missing header")
	}
	event, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if event.Data == nil {
		return domain.NewValidationError("data", "event has no payload")
	}

	log := s.logger.With(slog.String("event_id", event.ID), slog.String("event_type", string(event.Type)))

	switch event.Type {
	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		if invoice.Subscription == nil || invoice.Customer == nil {
			log.InfoContext(ctx, "invoice without subscription ignored")
			return nil
		}
		tier := models.TierPremium
		end := s.now().Add(premiumPeriod)
		return s.apply(ctx, log, invoice.Customer.ID, true, &tier, &end)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		if sub.Customer == nil {
			return nil
		}
		return s.apply(ctx, log, sub.Customer.ID, false, nil, nil)

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		if sub.Customer == nil {
			return nil
		}
		active := sub.Status == stripe.SubscriptionStatusActive
		var tier *string
		if active {
			t := models.TierPremium
			tier = &t
		}
		var end *time.Time
		if sub.CurrentPeriodEnd > 0 {
			e := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			end = &e
		}
		return s.apply(ctx, log, sub.Customer.ID, active, tier, end)

	default:
		log.InfoContext(ctx, "unhandled stripe event")
		return nil
	}
}

func (s *SubscriptionService) apply(ctx context.Context, log *slog.Logger, customerID string, subscribed bool, tier *string, end *time.Time) error {
	email, err := s.gateway.CustomerEmail(ctx, customerID)
	if err != nil {
		return err
	}
	if email == "" {
		log.InfoContext(ctx, "stripe customer has no email", slog.String("customer_id", customerID))
		return nil
	}

	err = s.subscribers.Upsert(ctx, &models.Subscriber{
		Email:            email,
		StripeCustomerID: customerID,
		Subscribed:       subscribed,
		Tier:             tier,
		SubscriptionEnd:  end,
	})
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "subscription updated",
		slog.String("email", email),
		slog.Bool("subscribed", subscribed))
	return nil
}
