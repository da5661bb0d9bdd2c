package service

import (
	"context"
	"fmt"
	"time"

	"emotiva/internal/domain"
	"emotiva/internal/models"
)

// Insight thresholds.
const (
	sadDaysForWarning   = 2
	happyDaysForPraise  = 3
	InsightContinuedSad = "continued_sadness"
	InsightPositiveWeek = "positive_week"
)

// WeekStart returns local midnight of the Monday of the week containing t.
// Sunday belongs to the week that started six days earlier.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	day := models.StartOfDay(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// BuildWeeklyReport lays checkins out over the seven days starting at
// weekStart. When a day has several records the first one in the slice wins.
func BuildWeeklyReport(weekStart time.Time, checkins []models.Checkin, loc *time.Location) models.WeeklyReport {
	if loc == nil {
		loc = time.UTC
	}
	weekStart = models.StartOfDay(weekStart, loc)

	report := models.WeeklyReport{
		WeekStart: models.DateOf(weekStart, loc),
		WeekEnd:   models.DateOf(weekStart.AddDate(0, 0, 6), loc),
		Days:      make([]models.DayBucket, 0, 7),
		Insights:  []models.Insight{},
	}

	for i := 0; i < 7; i++ {
		local := weekStart.AddDate(0, 0, i)
		date := models.DateOf(local, loc)
		bucket := models.DayBucket{
			Date:    date,
			Weekday: local.Weekday().String(),
			Emoji:   models.EmptyDayEmoji,
		}

		for _, c := range checkins {
			if !models.SameDay(c.ChosenDate, date) {
				continue
			}
			bucket.HasCheckin = true
			bucket.Mood = c.Mood
			bucket.Emoji = c.Mood.Emoji()
			bucket.Time = c.CreatedAt.In(loc).Format("15:04")
			bucket.SleptWell = c.SleptWell
			bucket.SomethingBad = c.SomethingBad
			bucket.Note = c.Note

			switch c.Mood {
			case models.MoodHappy:
				report.Counts.Happy++
			case models.MoodNeutral:
				report.Counts.Neutral++
			case models.MoodSad:
				report.Counts.Sad++
			}
			break
		}
		report.Days = append(report.Days, bucket)
	}

	report.Insights = weeklyInsights(report.Counts)
	return report
}

func weeklyInsights(counts models.MoodCounts) []models.Insight {
	insights := []models.Insight{}
	if counts.Sad >= sadDaysForWarning {
		insights = append(insights, models.Insight{
			Code:        InsightContinuedSad,
			Type:        models.InsightWarning,
			Title:       "Continued sadness",
			Description: fmt.Sprintf("Sadness was reported on %d days this week", counts.Sad),
			Suggestion:  "Consider talking about what might be bothering them",
		})
	}
	if counts.Happy >= happyDaysForPraise {
		insights = append(insights, models.Insight{
			Code:        InsightPositiveWeek,
			Type:        models.InsightPositive,
			Title:       "Positive week",
			Description: fmt.Sprintf("Happiness was reported on %d days this week", counts.Happy),
			Suggestion:  "Notice which activities contribute to their well-being",
		})
	}
	return insights
}

type weeklyCheckinLister interface {
	ListForChildBetween(ctx context.Context, childID int64, from, to time.Time) ([]models.Checkin, error)
}

type childGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Child, error)
}

// WeeklyService loads one week of check-ins and aggregates them.
type WeeklyService struct {
	children childGetter
	checkins weeklyCheckinLister
	loc      *time.Location
}

func NewWeeklyService(children childGetter, checkins weeklyCheckinLister, loc *time.Location) *WeeklyService {
	if loc == nil {
		loc = time.UTC
	}
	return &WeeklyService{children: children, checkins: checkins, loc: loc}
}

// Location is the zone reports are computed in.
func (s *WeeklyService) Location() *time.Location {
	return s.loc
}

// Report builds the report for the week containing day. Access control is
// the caller's job.
func (s *WeeklyService) Report(ctx context.Context, childID int64, day time.Time) (*models.WeeklyReport, error) {
	child, err := s.children.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, fmt.Errorf("child %d: %w", childID, domain.ErrNotFound)
	}

	start := WeekStart(day, s.loc)
	from := models.DateOf(start, s.loc)
	to := from.AddDate(0, 0, 6)

	checkins, err := s.checkins.ListForChildBetween(ctx, childID, from, to)
	if err != nil {
		return nil, err
	}

	report := BuildWeeklyReport(start, checkins, s.loc)
	report.ChildID = child.ID
	report.ChildName = child.Name
	return &report, nil
}
