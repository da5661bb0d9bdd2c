package models

import "time"

// Psychologist is the professional profile behind a psychologist account.
// PublicCode is what guardians type to share a child's reports.
type Psychologist struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	CRP        string    `json:"crp"`
	Specialty  string    `json:"specialty"`
	Phone      string    `json:"phone"`
	PublicCode string    `json:"public_code"`
	CreatedAt  time.Time `json:"created_at"`
}
