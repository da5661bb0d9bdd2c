package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"emotiva/internal/database"
	"emotiva/internal/domain"
	"emotiva/internal/models"
)

// InvitationRepository stores guardian invitations sent by schools.
type InvitationRepository struct {
	db database.DBTX
}

func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

const invitationSelect = `
	SELECT i.id, i.code, i.email, i.student_id, i.invited_by, i.created_at, i.expires_at, i.used_at, i.used_by, s.name
	FROM invitations i
	JOIN students s ON s.id = i.student_id`

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var inv models.Invitation
	var usedAt sql.NullTime
	var usedBy sql.NullInt64
	err := row.Scan(&inv.ID, &inv.Code, &inv.Email, &inv.StudentID, &inv.InvitedBy,
		&inv.CreatedAt, &inv.ExpiresAt, &usedAt, &usedBy, &inv.StudentName)
	if err != nil {
		return nil, err
	}
	inv.UsedAt = timePtr(usedAt)
	inv.UsedBy = int64Ptr(usedBy)
	return &inv, nil
}

// Create stores an invitation whose code the caller generated.
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	inv.CreatedAt = time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO invitations (code, email, student_id, invited_by, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inv.Code, inv.Email, inv.StudentID, inv.InvitedBy, inv.CreatedAt, inv.ExpiresAt.UTC())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("invitation code: %w", domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	inv.ID = id
	return nil
}

// GetByCode returns nil when no invitation has the code.
func (r *InvitationRepository) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRow(ctx, invitationSelect+` WHERE i.code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// ListByInviter returns a school's invitations, newest first.
func (r *InvitationRepository) ListByInviter(ctx context.Context, invitedBy int64) ([]models.Invitation, error) {
	return r.list(ctx, invitationSelect+` WHERE i.invited_by = ? ORDER BY i.created_at DESC, i.id DESC`, invitedBy)
}

func (r *InvitationRepository) ListAll(ctx context.Context) ([]models.Invitation, error) {
	return r.list(ctx, invitationSelect+` ORDER BY i.id`)
}

func (r *InvitationRepository) list(ctx context.Context, query string, args ...any) ([]models.Invitation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	out := []models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// MarkUsed consumes an unused invitation. Returns domain.ErrConflict if it was
// already used.
func (r *InvitationRepository) MarkUsed(ctx context.Context, code string, userID int64) error {
	res, err := r.db.Exec(ctx, `UPDATE invitations SET used_at = ?, used_by = ? WHERE code = ? AND used_at IS NULL`,
		time.Now().UTC(), userID, code)
	if err != nil {
		return fmt.Errorf("failed to mark invitation used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("invitation %s: %w", code, domain.ErrConflict)
	}
	return nil
}

// DeleteExpired removes unused invitations past their expiry.
func (r *InvitationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `DELETE FROM invitations WHERE used_at IS NULL AND expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	return res.RowsAffected()
}
