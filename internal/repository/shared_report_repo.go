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

// SharedReportRepository handles shares of a child's reports with psychologists.
type SharedReportRepository struct {
	db database.DBTX
}

func NewSharedReportRepository(db database.DBTX) *SharedReportRepository {
	return &SharedReportRepository{db: db}
}

const sharedReportSelect = `
	SELECT sr.id, sr.child_id, sr.guardian_id, sr.psychologist_id, sr.status, sr.created_at, sr.updated_at,
		c.name, c.age, g.name, p.name
	FROM shared_reports sr
	JOIN children c ON c.id = sr.child_id
	JOIN users g ON g.id = sr.guardian_id
	JOIN psychologists p ON p.id = sr.psychologist_id`

func scanSharedReport(row rowScanner) (*models.SharedReport, error) {
	s := &models.SharedReport{}
	var status string
	err := row.Scan(&s.ID, &s.ChildID, &s.GuardianID, &s.PsychologistID, &status, &s.CreatedAt, &s.UpdatedAt,
		&s.ChildName, &s.ChildAge, &s.GuardianName, &s.PsychologistName)
	if err != nil {
		return nil, err
	}
	s.Status = models.ShareStatus(status)
	return s, nil
}

// Create inserts a share. A second pending or accepted share for the same
// child and psychologist yields domain.ErrAlreadyExists.
func (r *SharedReportRepository) Create(ctx context.Context, s *models.SharedReport) error {
	now := time.Now().UTC()
	if s.Status == "" {
		s.Status = models.SharePending
	}
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO shared_reports (child_id, guardian_id, psychologist_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ChildID, s.GuardianID, s.PsychologistID, string(s.Status), now, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("active share for child %d: %w", s.ChildID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create shared report: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (r *SharedReportRepository) GetByID(ctx context.Context, id int64) (*models.SharedReport, error) {
	s, err := scanSharedReport(r.db.QueryRow(ctx, sharedReportSelect+` WHERE sr.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shared report: %w", err)
	}
	return s, nil
}

// FindActive returns a pending or accepted share for the pair, or nil.
func (r *SharedReportRepository) FindActive(ctx context.Context, childID, psychologistID int64) (*models.SharedReport, error) {
	s, err := scanSharedReport(r.db.QueryRow(ctx, sharedReportSelect+`
		WHERE sr.child_id = ? AND sr.psychologist_id = ? AND sr.status IN (?, ?)
		ORDER BY sr.id DESC LIMIT 1`,
		childID, psychologistID, string(models.SharePending), string(models.ShareAccepted)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active share: %w", err)
	}
	return s, nil
}

// ListForGuardian returns every share the guardian created, newest first.
func (r *SharedReportRepository) ListForGuardian(ctx context.Context, guardianID int64) ([]models.SharedReport, error) {
	return r.list(ctx, sharedReportSelect+` WHERE sr.guardian_id = ? ORDER BY sr.created_at DESC, sr.id DESC`, guardianID)
}

// ListForPsychologist filters by status when one is given.
func (r *SharedReportRepository) ListForPsychologist(ctx context.Context, psychologistID int64, status models.ShareStatus) ([]models.SharedReport, error) {
	if status == "" {
		return r.list(ctx, sharedReportSelect+` WHERE sr.psychologist_id = ? ORDER BY sr.created_at DESC, sr.id DESC`, psychologistID)
	}
	return r.list(ctx, sharedReportSelect+` WHERE sr.psychologist_id = ? AND sr.status = ? ORDER BY sr.created_at DESC, sr.id DESC`,
		psychologistID, string(status))
}

// HasAccepted reports whether the psychologist may read the child's reports.
func (r *SharedReportRepository) HasAccepted(ctx context.Context, childID, psychologistID int64) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM shared_reports
		WHERE child_id = ? AND psychologist_id = ? AND status = ?`,
		childID, psychologistID, string(models.ShareAccepted)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check share: %w", err)
	}
	return n > 0, nil
}

func (r *SharedReportRepository) ListAll(ctx context.Context) ([]models.SharedReport, error) {
	return r.list(ctx, sharedReportSelect+` ORDER BY sr.id`)
}

func (r *SharedReportRepository) list(ctx context.Context, query string, args ...any) ([]models.SharedReport, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shared reports: %w", err)
	}
	defer rows.Close()

	out := []models.SharedReport{}
	for rows.Next() {
		s, err := scanSharedReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shared report: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SharedReportRepository) UpdateStatus(ctx context.Context, id int64, status models.ShareStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE shared_reports SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update shared report: %w", err)
	}
	return nil
}

// DeleteForChild removes every share of a child.
func (r *SharedReportRepository) DeleteForChild(ctx context.Context, childID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM shared_reports WHERE child_id = ?`, childID); err != nil {
		return fmt.Errorf("failed to delete shared reports: %w", err)
	}
	return nil
}
