package models

import "time"

// Invitation asks a student's guardian to join Emotiva.
type Invitation struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	Email       string     `json:"email"`
	StudentID   int64      `json:"student_id"`
	InvitedBy   int64      `json:"invited_by"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	UsedBy      *int64     `json:"used_by,omitempty"`
	StudentName string     `json:"student_name,omitempty"`
}

func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

func (i *Invitation) IsUsed() bool {
	return i.UsedAt != nil
}

func (i *Invitation) IsValid() bool {
	return !i.IsExpired() && !i.IsUsed()
}
