package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"emotiva/internal/credentials"
	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/repository"
	"emotiva/internal/validation"
)

const codeAttempts = 5

// createPsychologistProfile assigns a fresh public code, retrying on the rare collision.
func createPsychologistProfile(ctx context.Context, repo *repository.PsychologistRepository, p *models.Psychologist) error {
	for i := 0; i < codeAttempts; i++ {
		code, err := credentials.GeneratePsychologistCode()
		if err != nil {
			return err
		}
		p.PublicCode = code
		err = repo.Create(ctx, p)
		if err == nil || !errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		existing, lookupErr := repo.GetByUserID(ctx, p.UserID)
		if lookupErr != nil {
			return lookupErr
		}
		if existing != nil {
			return err
		}
	}
	return fmt.Errorf("could not allocate a psychologist code after %d attempts", codeAttempts)
}

// PsychologistProfileInput updates the professional profile.
type PsychologistProfileInput struct {
	Name      string `json:"name" validate:"required,min=2,max=120"`
	CRP       string `json:"crp" validate:"required,max=32"`
	Specialty string `json:"specialty" validate:"max=120"`
	Phone     string `json:"phone" validate:"max=32"`
}

// PsychologistService manages psychologist profiles.
type PsychologistService struct {
	repo   *repository.PsychologistRepository
	shares *repository.SharedReportRepository
}

func NewPsychologistService(repo *repository.PsychologistRepository, shares *repository.SharedReportRepository) *PsychologistService {
	return &PsychologistService{repo: repo, shares: shares}
}

// Profile returns the caller's profile or domain.ErrNotFound.
func (s *PsychologistService) Profile(ctx context.Context, userID int64) (*models.Psychologist, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("psychologist profile: %w", domain.ErrNotFound)
	}
	return p, nil
}

// SaveProfile creates the profile on first use and updates it afterwards.
func (s *PsychologistService) SaveProfile(ctx context.Context, userID int64, in PsychologistProfileInput) (*models.Psychologist, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.CRP = strings.TrimSpace(in.CRP)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &models.Psychologist{UserID: userID, Name: in.Name, CRP: in.CRP, Specialty: in.Specialty, Phone: in.Phone}
		if err := createPsychologistProfile(ctx, s.repo, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	p.Name, p.CRP, p.Specialty, p.Phone = in.Name, in.CRP, in.Specialty, in.Phone
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Summary counts accepted reports and pending invites for the dashboard.
func (s *PsychologistService) Summary(ctx context.Context, userID int64) (*PsychologistSummary, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &PsychologistSummary{}, nil
	}
	shares, err := s.shares.ListForPsychologist(ctx, p.ID, "")
	if err != nil {
		return nil, err
	}

	summary := &PsychologistSummary{Profile: p}
	for _, sh := range shares {
		switch sh.Status {
		case models.ShareAccepted:
			summary.AcceptedReports++
		case models.SharePending:
			summary.PendingInvites++
		}
	}
	return summary, nil
}
