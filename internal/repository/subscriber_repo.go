package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"emotiva/internal/database"
	"emotiva/internal/models"
)

// SubscriberRepository mirrors billing state per email.
type SubscriberRepository struct {
	db database.DBTX
}

func NewSubscriberRepository(db database.DBTX) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

const subscriberColumns = `id, email, stripe_customer_id, subscribed, subscription_tier, subscription_end, updated_at`

func scanSubscriber(row rowScanner) (*models.Subscriber, error) {
	s := &models.Subscriber{}
	var tier sql.NullString
	var end sql.NullTime
	if err := row.Scan(&s.ID, &s.Email, &s.StripeCustomerID, &s.Subscribed, &tier, &end, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if tier.Valid {
		t := tier.String
		s.Tier = &t
	}
	s.SubscriptionEnd = timePtr(end)
	return s, nil
}

// GetByEmail returns nil when the email has never been billed.
func (r *SubscriberRepository) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	s, err := scanSubscriber(r.db.QueryRow(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE email = ?`, strings.ToLower(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	return s, nil
}

// Upsert writes the full billing state keyed by email.
func (r *SubscriberRepository) Upsert(ctx context.Context, s *models.Subscriber) error {
	s.Email = strings.ToLower(s.Email)
	_, err := r.db.Exec(ctx, r.db.GetDialect().UpsertSubscriberQuery(),
		s.Email, s.StripeCustomerID, s.Subscribed, nullString(s.Tier), nullTime(s.SubscriptionEnd))
	if err != nil {
		return fmt.Errorf("failed to upsert subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepository) ListAll(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := r.db.Query(ctx, `SELECT `+subscriberColumns+` FROM subscribers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var out []models.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
