package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"emotiva/internal/database"
	"emotiva/internal/models"
)

type NotificationRepository struct {
	db database.DBTX
}

func NewNotificationRepository(db database.DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx,
		`INSERT INTO notifications (recipient_id, message, created_at) VALUES (?, ?, ?)`,
		n.RecipientID, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	n.ID = id
	return nil
}

// ListForRecipient returns the newest notifications first.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error) {
	return r.list(ctx, `
		SELECT id, recipient_id, message, read_at, created_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, recipientID, limit)
}

func (r *NotificationRepository) ListAll(ctx context.Context) ([]models.Notification, error) {
	return r.list(ctx, `SELECT id, recipient_id, message, read_at, created_at FROM notifications ORDER BY id`)
}

func (r *NotificationRepository) list(ctx context.Context, query string, args ...any) ([]models.Notification, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Message, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.ReadAt = timePtr(readAt)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead only touches the recipient's own notification and reports whether
// anything changed.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID int64) (bool, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE notifications SET read_at = ?
		WHERE id = ? AND recipient_id = ? AND read_at IS NULL`,
		time.Now().UTC(), id, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
