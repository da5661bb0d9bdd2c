package models

import "time"

// DayBucket is one calendar day of a weekly report. Only Emoji and Date are
// set when no check-in exists for the day.
type DayBucket struct {
	Date         time.Time `json:"date"`
	Weekday      string    `json:"weekday"`
	Emoji        string    `json:"emoji"`
	HasCheckin   bool      `json:"has_checkin"`
	Mood         Mood      `json:"mood,omitempty"`
	Time         string    `json:"time,omitempty"`
	SleptWell    *bool     `json:"slept_well,omitempty"`
	SomethingBad *bool     `json:"something_bad,omitempty"`
	Note         string    `json:"note,omitempty"`
}

// MoodCounts tallies populated buckets per mood.
type MoodCounts struct {
	Happy   int `json:"happy"`
	Neutral int `json:"neutral"`
	Sad     int `json:"sad"`
}

type InsightType string

const (
	InsightWarning  InsightType = "warning"
	InsightPositive InsightType = "positive"
)

// Insight is a threshold-based observation about a week.
type Insight struct {
	Code        string      `json:"code"`
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Suggestion  string      `json:"suggestion"`
}

// WeeklyReport covers the Monday-to-Sunday week starting at WeekStart.
type WeeklyReport struct {
	ChildID   int64       `json:"child_id"`
	ChildName string      `json:"child_name"`
	WeekStart time.Time   `json:"week_start"`
	WeekEnd   time.Time   `json:"week_end"`
	Days      []DayBucket `json:"days"`
	Counts    MoodCounts  `json:"counts"`
	Insights  []Insight   `json:"insights"`
}
