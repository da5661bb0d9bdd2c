package service

import (
	"context"
	"fmt"

	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/repository"
)

const maxNotifications = 100

// NotificationService lists and acknowledges a user's notifications.
type NotificationService struct {
	repo *repository.NotificationRepository
}

func NewNotificationService(repo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit < 1 || limit > maxNotifications {
		limit = maxNotifications
	}
	items, err := s.repo.ListForRecipient(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead returns domain.ErrNotFound when the notification is not the
// caller's or was already read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
