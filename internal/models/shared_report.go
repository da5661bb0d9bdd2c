package models

import "time"

type ShareStatus string

const (
	SharePending  ShareStatus = "pending"
	ShareAccepted ShareStatus = "accepted"
	ShareDeclined ShareStatus = "declined"
	ShareRevoked  ShareStatus = "revoked"
)

// Active reports whether the share still blocks a new one for the same pair.
func (s ShareStatus) Active() bool {
	return s == SharePending || s == ShareAccepted
}

// SharedReport grants a psychologist access to one child's reports.
type SharedReport struct {
	ID             int64       `json:"id"`
	ChildID        int64       `json:"child_id"`
	GuardianID     int64       `json:"guardian_id"`
	PsychologistID int64       `json:"psychologist_id"`
	Status         ShareStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// Populated via JOIN
	ChildName        string `json:"child_name,omitempty"`
	ChildAge         int    `json:"child_age,omitempty"`
	GuardianName     string `json:"guardian_name,omitempty"`
	PsychologistName string `json:"psychologist_name,omitempty"`
}
