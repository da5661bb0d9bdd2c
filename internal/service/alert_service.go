package service

import (
	"context"
	"log/slog"
	"time"

	"emotiva/internal/models"
)

// Issue messages, in evaluation order.
const (
	IssueSad         = "is feeling sad"
	IssueSleptBadly  = "did not sleep well"
	IssueBadHappened = "something bad happened"
)

// EvaluateCheckin lists the concerns raised by a single check-in. Unknown
// sleep or event answers raise nothing.
func EvaluateCheckin(c models.Checkin) []string {
	var issues []string
	if c.Mood == models.MoodSad {
		issues = append(issues, IssueSad)
	}
	if c.SleptWell != nil && !*c.SleptWell {
		issues = append(issues, IssueSleptBadly)
	}
	if c.SomethingBad != nil && *c.SomethingBad {
		issues = append(issues, IssueBadHappened)
	}
	return issues
}

type latestCheckinFinder interface {
	LatestForChild(ctx context.Context, childID int64, since time.Time) (*models.Checkin, error)
}

// AlertService derives alerts from each child's most recent check-in inside
// the lookback window. Alerts are recomputed on every call.
type AlertService struct {
	checkins     latestCheckinFinder
	lookbackDays int
	loc          *time.Location
	logger       *slog.Logger
}

func NewAlertService(checkins latestCheckinFinder, lookbackDays int, loc *time.Location, logger *slog.Logger) *AlertService {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AlertService{checkins: checkins, lookbackDays: lookbackDays, loc: loc, logger: logger}
}

// WindowStart is the earliest chosen date still inside the lookback window:
// today minus lookbackDays-1, as a stored calendar date.
func (s *AlertService) WindowStart(now time.Time) time.Time {
	return models.DateOf(now, s.loc).AddDate(0, 0, -(s.lookbackDays - 1))
}

// AlertsFor evaluates children in order. A child whose lookup fails is logged
// and skipped; the only error returned is context cancellation.
func (s *AlertService) AlertsFor(ctx context.Context, children []models.Child, now time.Time) ([]models.Alert, error) {
	since := s.WindowStart(now)
	alerts := []models.Alert{}

	for _, child := range children {
		rec, err := s.checkins.LatestForChild(ctx, child.ID, since)
		if err != nil {
			if ctx.Err() != nil {
				return alerts, ctx.Err()
			}
			s.logger.WarnContext(ctx, "alert lookup failed",
				slog.Int64("child_id", child.ID),
				slog.String("error", err.Error()))
			continue
		}
		if rec == nil {
			continue
		}

		issues := EvaluateCheckin(*rec)
		if len(issues) == 0 {
			continue
		}
		alerts = append(alerts, models.Alert{Child: child, Checkin: *rec, Issues: issues})
	}
	return alerts, nil
}
