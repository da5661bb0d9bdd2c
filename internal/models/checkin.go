package models

import "time"

// Mood is the category a guardian picks for a check-in.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
)

// EmptyDayEmoji marks a day without a check-in.
const EmptyDayEmoji = "⚪"

// Valid reports whether m is one of the enumerated moods.
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodNeutral, MoodSad:
		return true
	}
	return false
}

// Emoji maps a mood to its face. Unknown moods render as neutral.
func (m Mood) Emoji() string {
	switch m {
	case MoodHappy:
		return "😀"
	case MoodSad:
		return "😢"
	default:
		return "😐"
	}
}

// Checkin is one guardian-submitted daily report for a child. ChosenDate is a
// calendar day encoded as midnight UTC; at most one exists per child and day.
type Checkin struct {
	ID           int64     `json:"id"`
	ChildID      int64     `json:"child_id"`
	ChosenDate   time.Time `json:"chosen_date"`
	Mood         Mood      `json:"mood"`
	SleptWell    *bool     `json:"slept_well"`
	SomethingBad *bool     `json:"something_bad"`
	Note         string    `json:"note"`
	Intensity    *int      `json:"intensity,omitempty"`
	Observations string    `json:"observations,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
