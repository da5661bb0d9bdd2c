package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"emotiva/internal/credentials"
	"emotiva/internal/database"
	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/repository"
)

var errAlreadyShared = fmt.Errorf("report already shared with this psychologist: %w", domain.ErrConflict)

type premiumGate interface {
	RequirePremium(ctx context.Context, email string) error
}

// SharingService lets guardians share a child's reports with psychologists.
type SharingService struct {
	db            *database.DB
	children      *ChildService
	psychologists *repository.PsychologistRepository
	shares        *repository.SharedReportRepository
	weekly        *WeeklyService
	premium       premiumGate
	logger        *slog.Logger
}

func NewSharingService(db *database.DB, children *ChildService, weekly *WeeklyService, premium premiumGate, logger *slog.Logger) *SharingService {
	return &SharingService{
		db:            db,
		children:      children,
		psychologists: repository.NewPsychologistRepository(db),
		shares:        repository.NewSharedReportRepository(db),
		weekly:        weekly,
		premium:       premium,
		logger:        logger,
	}
}

// Share creates a pending share of childID with the psychologist holding
// code, and notifies the psychologist. Premium only.
func (s *SharingService) Share(ctx context.Context, guardian *models.User, childID int64, code string) (*models.SharedReport, error) {
	if err := s.premium.RequirePremium(ctx, guardian.Email); err != nil {
		return nil, err
	}
	child, err := s.children.Owned(ctx, guardian.ID, childID)
	if err != nil {
		return nil, err
	}

	code = credentials.NormalizeCode(code)
	if code == "" {
		return nil, domain.NewValidationError("code", "is required")
	}
	psych, err := s.psychologists.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if psych == nil {
		return nil, fmt.Errorf("psychologist code %s: %w", code, domain.ErrNotFound)
	}

	share := &models.SharedReport{
		ChildID:        child.ID,
		GuardianID:     guardian.ID,
		PsychologistID: psych.ID,
		Status:         models.SharePending,
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		shares := repository.NewSharedReportRepository(tx)
		existing, err := shares.FindActive(ctx, child.ID, psych.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errAlreadyShared
		}
		if err := shares.Create(ctx, share); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return errAlreadyShared
			}
			return err
		}
		return repository.NewNotificationRepository(tx).Create(ctx, &models.Notification{
			RecipientID: psych.UserID,
			Message:     fmt.Sprintf("New invitation to follow %s's emotional reports", child.Name),
		})
	})
	if err != nil {
		return nil, err
	}

	share.ChildName = child.Name
	share.ChildAge = child.Age
	share.GuardianName = guardian.Name
	share.PsychologistName = psych.Name

	s.logger.InfoContext(ctx, "report shared",
		slog.Int64("share_id", share.ID),
		slog.Int64("child_id", child.ID),
		slog.Int64("psychologist_id", psych.ID))
	return share, nil
}

// SharesForChild lists every share of an owned child.
func (s *SharingService) SharesForChild(ctx context.Context, guardianID, childID int64) ([]models.SharedReport, error) {
	if _, err := s.children.Owned(ctx, guardianID, childID); err != nil {
		return nil, err
	}
	all, err := s.shares.ListForGuardian(ctx, guardianID)
	if err != nil {
		return nil, err
	}
	out := []models.SharedReport{}
	for _, sh := range all {
		if sh.ChildID == childID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (s *SharingService) psychologistFor(ctx context.Context, userID int64) (*models.Psychologist, error) {
	p, err := s.psychologists.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("psychologist profile: %w", domain.ErrNotFound)
	}
	return p, nil
}

// Invites lists pending shares addressed to the psychologist.
func (s *SharingService) Invites(ctx context.Context, psychUserID int64) ([]models.SharedReport, error) {
	p, err := s.psychologistFor(ctx, psychUserID)
	if err != nil {
		return nil, err
	}
	return s.shares.ListForPsychologist(ctx, p.ID, models.SharePending)
}

// Reports lists accepted shares of the psychologist.
func (s *SharingService) Reports(ctx context.Context, psychUserID int64) ([]models.SharedReport, error) {
	p, err := s.psychologistFor(ctx, psychUserID)
	if err != nil {
		return nil, err
	}
	return s.shares.ListForPsychologist(ctx, p.ID, models.ShareAccepted)
}

// Respond accepts or declines a pending share and notifies the guardian.
func (s *SharingService) Respond(ctx context.Context, psychUserID, shareID int64, accept bool) (*models.SharedReport, error) {
	p, err := s.psychologistFor(ctx, psychUserID)
	if err != nil {
		return nil, err
	}
	share, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share == nil || share.PsychologistID != p.ID {
		return nil, fmt.Errorf("share %d: %w", shareID, domain.ErrNotFound)
	}
	if share.Status != models.SharePending {
		return nil, fmt.Errorf("share is %s: %w", share.Status, domain.ErrConflict)
	}

	status, verb := models.ShareDeclined, "declined"
	if accept {
		status, verb = models.ShareAccepted, "accepted"
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := repository.NewSharedReportRepository(tx).UpdateStatus(ctx, share.ID, status); err != nil {
			return err
		}
		return repository.NewNotificationRepository(tx).Create(ctx, &models.Notification{
			RecipientID: share.GuardianID,
			Message:     fmt.Sprintf("%s %s the invitation to follow %s's reports", p.Name, verb, share.ChildName),
		})
	})
	if err != nil {
		return nil, err
	}

	share.Status = status
	return share, nil
}

// Revoke ends an active share. Either the guardian who created it or the
// psychologist it targets may revoke.
func (s *SharingService) Revoke(ctx context.Context, user *models.User, shareID int64) (*models.SharedReport, error) {
	share, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share == nil {
		return nil, fmt.Errorf("share %d: %w", shareID, domain.ErrNotFound)
	}

	allowed := share.GuardianID == user.ID
	if !allowed && user.Role == models.RolePsychologist {
		p, err := s.psychologists.GetByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		allowed = p != nil && p.ID == share.PsychologistID
	}
	if !allowed {
		return nil, fmt.Errorf("share %d: %w", shareID, domain.ErrNotFound)
	}
	if !share.Status.Active() {
		return nil, fmt.Errorf("share is %s: %w", share.Status, domain.ErrConflict)
	}

	if err := s.shares.UpdateStatus(ctx, share.ID, models.ShareRevoked); err != nil {
		return nil, err
	}
	share.Status = models.ShareRevoked
	return share, nil
}

// WeeklyForPsychologist returns the weekly report behind an accepted share.
func (s *SharingService) WeeklyForPsychologist(ctx context.Context, psychUserID, shareID int64, day time.Time) (*models.WeeklyReport, error) {
	p, err := s.psychologistFor(ctx, psychUserID)
	if err != nil {
		return nil, err
	}
	share, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share == nil || share.PsychologistID != p.ID {
		return nil, fmt.Errorf("share %d: %w", shareID, domain.ErrNotFound)
	}
	if share.Status != models.ShareAccepted {
		return nil, fmt.Errorf("share is %s: %w", share.Status, domain.ErrForbidden)
	}
	return s.weekly.Report(ctx, share.ChildID, day)
}
