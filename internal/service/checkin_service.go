package service

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/realtime"
	"emotiva/internal/repository"
	"emotiva/internal/validation"
)

// CheckinInput is a guardian's daily report for one child. Date is optional
// and defaults to today.
type CheckinInput struct {
	Mood         string `json:"mood" validate:"required,mood"`
	Date         string `json:"date" validate:"max=40"`
	SleptWell    *bool  `json:"slept_well"`
	SomethingBad *bool  `json:"something_bad"`
	Note         string `json:"note" validate:"max=1000"`
	Intensity    *int   `json:"intensity" validate:"omitempty,gte=1,lte=5"`
	Observations string `json:"observations" validate:"max=2000"`
}

// CheckinService records check-ins for children the caller owns.
type CheckinService struct {
	children *ChildService
	checkins *repository.CheckinRepository
	hub      *realtime.Hub
	loc      *time.Location
	now      func() time.Time
}

func NewCheckinService(children *ChildService, checkins *repository.CheckinRepository, hub *realtime.Hub, loc *time.Location) *CheckinService {
	if loc == nil {
		loc = time.UTC
	}
	return &CheckinService{children: children, checkins: checkins, hub: hub, loc: loc, now: time.Now}
}

// ParseDay parses a user-supplied date in the service zone and returns it as
// a stored calendar date. An empty string means today. Numeric dates are read
// day first (dd/mm/yyyy).
func ParseDay(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DateOf(now, loc), nil
	}
	t, err := dateparse.ParseIn(raw, loc, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", "unrecognised date")
	}
	return models.DateOf(t, loc), nil
}

// Create stores a check-in. Future dates are rejected and a second check-in
// for the same day yields domain.ErrAlreadyExists.
func (s *CheckinService) Create(ctx context.Context, guardianID, childID int64, in CheckinInput) (*models.Checkin, error) {
	in.Mood = strings.ToLower(strings.TrimSpace(in.Mood))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.children.Owned(ctx, guardianID, childID); err != nil {
		return nil, err
	}

	now := s.now()
	day, err := ParseDay(in.Date, s.loc, now)
	if err != nil {
		return nil, err
	}
	if day.After(models.DateOf(now, s.loc)) {
		return nil, domain.NewValidationError("date", "must not be in the future")
	}

	c := &models.Checkin{
		ChildID:      childID,
		ChosenDate:   day,
		Mood:         models.Mood(in.Mood),
		SleptWell:    in.SleptWell,
		SomethingBad: in.SomethingBad,
		Note:         strings.TrimSpace(in.Note),
		Intensity:    in.Intensity,
		Observations: strings.TrimSpace(in.Observations),
		CreatedAt:    now.UTC(),
	}
	if err := s.checkins.Create(ctx, c); err != nil {
		return nil, err
	}

	s.hub.Publish(realtime.Event{Kind: realtime.CheckinStored, GuardianID: guardianID, ChildID: childID})
	return c, nil
}

// List returns the most recent check-ins of an owned child.
func (s *CheckinService) List(ctx context.Context, guardianID, childID int64, limit int) ([]models.Checkin, error) {
	if _, err := s.children.Owned(ctx, guardianID, childID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = 30
	case limit > 100:
		limit = 100
	}
	return s.checkins.ListForChild(ctx, childID, limit)
}
