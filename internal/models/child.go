package models

import "time"

// Child is a guardian-owned child profile.
type Child struct {
	ID         int64     `json:"id"`
	GuardianID int64     `json:"guardian_id"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
