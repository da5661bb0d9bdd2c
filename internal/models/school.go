package models

import "time"

type School struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Class is a school class. SchoolUserID is the owning school account.
type Class struct {
	ID           int64     `json:"id"`
	SchoolUserID int64     `json:"school_user_id"`
	Name         string    `json:"name"`
	Grade        string    `json:"grade"`
	Description  string    `json:"description"`
	StudentCount int       `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Student struct {
	ID            int64     `json:"id"`
	ClassID       int64     `json:"class_id"`
	Name          string    `json:"name"`
	Age           int       `json:"age"`
	GuardianName  string    `json:"guardian_name"`
	GuardianEmail string    `json:"guardian_email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StudentCheckin is a mood recorded by the school for a student on a day.
type StudentCheckin struct {
	ID          int64     `json:"id"`
	StudentID   int64     `json:"student_id"`
	Mood        Mood      `json:"mood"`
	CheckinDate time.Time `json:"checkin_date"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

// MoodShare is one row of a mood distribution.
type MoodShare struct {
	Mood    Mood    `json:"mood"`
	Emoji   string  `json:"emoji"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// DailyCount is the number of student check-ins on one day.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// SchoolReport summarises student check-ins over a date range.
type SchoolReport struct {
	From         time.Time    `json:"from"`
	To           time.Time    `json:"to"`
	ClassID      *int64       `json:"class_id,omitempty"`
	Total        int          `json:"total"`
	Distribution []MoodShare  `json:"distribution"`
	Daily        []DailyCount `json:"daily"`
}
