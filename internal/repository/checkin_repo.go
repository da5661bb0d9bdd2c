package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"emotiva/internal/database"
	"emotiva/internal/domain"
	"emotiva/internal/models"
)

// CheckinRepository handles database operations for check-ins
type CheckinRepository struct {
	db database.DBTX
}

func NewCheckinRepository(db database.DBTX) *CheckinRepository {
	return &CheckinRepository{db: db}
}

const checkinColumns = `id, child_id, chosen_date, mood, slept_well, something_bad, note, intensity, observations, created_at`

func scanCheckin(row rowScanner) (*models.Checkin, error) {
	var (
		c            models.Checkin
		mood         string
		sleptWell    sql.NullBool
		somethingBad sql.NullBool
		intensity    sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.ChildID, &c.ChosenDate, &mood, &sleptWell, &somethingBad,
		&c.Note, &intensity, &c.Observations, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.ChosenDate = civilDate(c.ChosenDate)
	c.Mood = models.Mood(mood)
	c.SleptWell = boolPtr(sleptWell)
	c.SomethingBad = boolPtr(somethingBad)
	c.Intensity = intPtr(intensity)
	return &c, nil
}

// Create inserts a check-in. A second check-in for the same child and day
// fails with domain.ErrAlreadyExists.
func (r *CheckinRepository) Create(ctx context.Context, c *models.Checkin) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.ChosenDate = civilDate(c.ChosenDate)

	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO checkins (child_id, chosen_date, mood, slept_well, something_bad, note, intensity, observations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ChildID, c.ChosenDate, string(c.Mood), nullBool(c.SleptWell), nullBool(c.SomethingBad),
		c.Note, nullInt(c.Intensity), c.Observations, c.CreatedAt.UTC())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("check-in for %s: %w", c.ChosenDate.Format(time.DateOnly), domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create checkin: %w", err)
	}
	c.ID = id
	return nil
}

// LatestForChild returns the most recent check-in on or after since, ordered
// by chosen date then creation time. Returns nil when there is none.
func (r *CheckinRepository) LatestForChild(ctx context.Context, childID int64, since time.Time) (*models.Checkin, error) {
	c, err := scanCheckin(r.db.QueryRow(ctx, `
		SELECT `+checkinColumns+`
		FROM checkins
		WHERE child_id = ? AND chosen_date >= ?
		ORDER BY chosen_date DESC, created_at DESC
		LIMIT 1`, childID, civilDate(since)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest checkin: %w", err)
	}
	return c, nil
}

// ListForChildBetween returns check-ins with chosen date in [from, to],
// oldest first.
func (r *CheckinRepository) ListForChildBetween(ctx context.Context, childID int64, from, to time.Time) ([]models.Checkin, error) {
	query, args, err := sq.Select(checkinColumns).
		From("checkins").
		Where(sq.Eq{"child_id": childID}).
		Where(sq.GtOrEq{"chosen_date": civilDate(from)}).
		Where(sq.LtOrEq{"chosen_date": civilDate(to)}).
		OrderBy("chosen_date ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build checkin query: %w", err)
	}
	return r.list(ctx, query, args...)
}

// ListForChild returns a child's recent check-ins, newest first.
func (r *CheckinRepository) ListForChild(ctx context.Context, childID int64, limit int) ([]models.Checkin, error) {
	return r.list(ctx, `
		SELECT `+checkinColumns+` FROM checkins
		WHERE child_id = ?
		ORDER BY chosen_date DESC, created_at DESC
		LIMIT ?`, childID, limit)
}

// ListAll is used by the backup export.
func (r *CheckinRepository) ListAll(ctx context.Context) ([]models.Checkin, error) {
	return r.list(ctx, `SELECT `+checkinColumns+` FROM checkins ORDER BY id`)
}

func (r *CheckinRepository) list(ctx context.Context, query string, args ...any) ([]models.Checkin, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkins: %w", err)
	}
	defer rows.Close()

	checkins := []models.Checkin{}
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkin: %w", err)
		}
		checkins = append(checkins, *c)
	}
	return checkins, rows.Err()
}

// DeleteForChild removes every check-in of a child.
func (r *CheckinRepository) DeleteForChild(ctx context.Context, childID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM checkins WHERE child_id = ?`, childID); err != nil {
		return fmt.Errorf("failed to delete checkins: %w", err)
	}
	return nil
}
