package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"emotiva/internal/database"
	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/realtime"
	"emotiva/internal/repository"
	"emotiva/internal/validation"
)

// ChildInput is one child in a create or update request.
type ChildInput struct {
	Name string `json:"name" validate:"required,max=80"`
	Age  *int   `json:"age" validate:"required,gte=0,lte=18"`
}

// ChildService owns guardian child profiles and announces changes on the hub.
type ChildService struct {
	db       *database.DB
	children *repository.ChildRepository
	hub      *realtime.Hub
	logger   *slog.Logger
}

func NewChildService(db *database.DB, hub *realtime.Hub, logger *slog.Logger) *ChildService {
	return &ChildService{
		db:       db,
		children: repository.NewChildRepository(db),
		hub:      hub,
		logger:   logger,
	}
}

// List returns the guardian's children in creation order.
func (s *ChildService) List(ctx context.Context, guardianID int64) ([]models.Child, error) {
	return s.children.ListByGuardian(ctx, guardianID)
}

// Owned returns the child when guardianID owns it. Other guardians' children
// are reported as not found.
func (s *ChildService) Owned(ctx context.Context, guardianID, childID int64) (*models.Child, error) {
	c, err := s.children.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.GuardianID != guardianID {
		return nil, fmt.Errorf("child %d: %w", childID, domain.ErrNotFound)
	}
	return c, nil
}

// CreateBatch validates every entry before inserting any, then inserts them
// in one transaction.
func (s *ChildService) CreateBatch(ctx context.Context, guardianID int64, inputs []ChildInput) ([]models.Child, error) {
	if len(inputs) == 0 {
		return nil, domain.NewValidationError("children", "at least one child is required")
	}

	var fieldErrs []domain.FieldError
	for i := range inputs {
		inputs[i].Name = strings.TrimSpace(inputs[i].Name)
		if err := validation.Struct(inputs[i]); err != nil {
			fieldErrs = append(fieldErrs, prefixFieldErrors(fmt.Sprintf("children[%d]", i), err)...)
		}
	}
	if len(fieldErrs) > 0 {
		return nil, domain.NewValidationErrors(fieldErrs)
	}

	created := make([]models.Child, 0, len(inputs))
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := repository.NewChildRepository(tx)
		for _, in := range inputs {
			c := models.Child{GuardianID: guardianID, Name: in.Name, Age: *in.Age}
			if err := repo.Create(ctx, &c); err != nil {
				return err
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range created {
		s.hub.Publish(realtime.Event{Kind: realtime.ChildCreated, GuardianID: guardianID, ChildID: c.ID})
	}
	return created, nil
}

func (s *ChildService) Update(ctx context.Context, guardianID, childID int64, in ChildInput) (*models.Child, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	c, err := s.Owned(ctx, guardianID, childID)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.Age = *in.Age
	if err := s.children.Update(ctx, c); err != nil {
		return nil, err
	}

	s.hub.Publish(realtime.Event{Kind: realtime.ChildUpdated, GuardianID: guardianID, ChildID: c.ID})
	return c, nil
}

// Delete removes the child's check-ins and shares, then the child, atomically.
func (s *ChildService) Delete(ctx context.Context, guardianID, childID int64) error {
	if _, err := s.Owned(ctx, guardianID, childID); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := repository.NewCheckinRepository(tx).DeleteForChild(ctx, childID); err != nil {
			return err
		}
		if err := repository.NewSharedReportRepository(tx).DeleteForChild(ctx, childID); err != nil {
			return err
		}
		return repository.NewChildRepository(tx).Delete(ctx, childID)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "child deleted", slog.Int64("child_id", childID), slog.Int64("guardian_id", guardianID))
	s.hub.Publish(realtime.Event{Kind: realtime.ChildDeleted, GuardianID: guardianID, ChildID: childID})
	return nil
}

// prefixFieldErrors rewrites the fields of a validation error under prefix.
func prefixFieldErrors(prefix string, err error) []domain.FieldError {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return []domain.FieldError{{Field: prefix, Message: err.Error()}}
	}
	out := make([]domain.FieldError, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		out = append(out, domain.FieldError{Field: prefix + "." + fe.Field, Message: fe.Message})
	}
	return out
}
