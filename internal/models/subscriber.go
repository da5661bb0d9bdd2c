package models

import "time"

// TierPremium is the only tier that unlocks premium features.
const TierPremium = "Premium"

// Subscriber mirrors billing state for an email address.
type Subscriber struct {
	ID               int64      `json:"id"`
	Email            string     `json:"email"`
	StripeCustomerID string     `json:"stripe_customer_id"`
	Subscribed       bool       `json:"subscribed"`
	Tier             *string    `json:"subscription_tier"`
	SubscriptionEnd  *time.Time `json:"subscription_end"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CanAccessPremium is true only for an active Premium subscription.
func (s *Subscriber) CanAccessPremium() bool {
	return s != nil && s.Subscribed && s.Tier != nil && *s.Tier == TierPremium
}
