package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"emotiva/internal/database"
	"emotiva/internal/models"
)

// ChildRepository handles database operations for children
type ChildRepository struct {
	db database.DBTX
}

func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

const childColumns = `id, guardian_id, name, age, created_at, updated_at`

func scanChild(row rowScanner) (*models.Child, error) {
	c := &models.Child{}
	if err := row.Scan(&c.ID, &c.GuardianID, &c.Name, &c.Age, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a child and fills in its ID and timestamps.
func (r *ChildRepository) Create(ctx context.Context, c *models.Child) error {
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO children (guardian_id, name, age, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.GuardianID, c.Name, c.Age, now, now)
	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetByID returns nil when the child does not exist.
func (r *ChildRepository) GetByID(ctx context.Context, id int64) (*models.Child, error) {
	c, err := scanChild(r.db.QueryRow(ctx, `SELECT `+childColumns+` FROM children WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return c, nil
}

// ListByGuardian returns a guardian's children in creation order.
func (r *ChildRepository) ListByGuardian(ctx context.Context, guardianID int64) ([]models.Child, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+childColumns+` FROM children WHERE guardian_id = ? ORDER BY created_at, id`, guardianID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	children := []models.Child{}
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

// ListAll is used by the backup export.
func (r *ChildRepository) ListAll(ctx context.Context) ([]models.Child, error) {
	rows, err := r.db.Query(ctx, `SELECT `+childColumns+` FROM children ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func (r *ChildRepository) Update(ctx context.Context, c *models.Child) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `UPDATE children SET name = ?, age = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Age, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	return nil
}

// Delete removes the child row only. Callers clear dependent rows first.
func (r *ChildRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM children WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	return nil
}
