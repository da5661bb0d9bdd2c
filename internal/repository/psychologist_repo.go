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

type PsychologistRepository struct {
	db database.DBTX
}

func NewPsychologistRepository(db database.DBTX) *PsychologistRepository {
	return &PsychologistRepository{db: db}
}

const psychologistColumns = `id, user_id, name, crp, specialty, phone, public_code, created_at`

func scanPsychologist(row rowScanner) (*models.Psychologist, error) {
	p := &models.Psychologist{}
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.CRP, &p.Specialty, &p.Phone, &p.PublicCode, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a profile. A taken user or public code yields domain.ErrAlreadyExists.
func (r *PsychologistRepository) Create(ctx context.Context, p *models.Psychologist) error {
	p.CreatedAt = time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO psychologists (user_id, name, crp, specialty, phone, public_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.CRP, p.Specialty, p.Phone, p.PublicCode, p.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("psychologist profile: %w", domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create psychologist: %w", err)
	}
	p.ID = id
	return nil
}

func (r *PsychologistRepository) get(ctx context.Context, where string, arg any) (*models.Psychologist, error) {
	p, err := scanPsychologist(r.db.QueryRow(ctx, `SELECT `+psychologistColumns+` FROM psychologists WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get psychologist: %w", err)
	}
	return p, nil
}

func (r *PsychologistRepository) GetByID(ctx context.Context, id int64) (*models.Psychologist, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *PsychologistRepository) GetByUserID(ctx context.Context, userID int64) (*models.Psychologist, error) {
	return r.get(ctx, "user_id = ?", userID)
}

// GetByCode expects an already normalized (uppercased) code.
func (r *PsychologistRepository) GetByCode(ctx context.Context, code string) (*models.Psychologist, error) {
	return r.get(ctx, "public_code = ?", code)
}

func (r *PsychologistRepository) Update(ctx context.Context, p *models.Psychologist) error {
	_, err := r.db.Exec(ctx, `UPDATE psychologists SET name = ?, crp = ?, specialty = ?, phone = ? WHERE id = ?`,
		p.Name, p.CRP, p.Specialty, p.Phone, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update psychologist: %w", err)
	}
	return nil
}

func (r *PsychologistRepository) ListAll(ctx context.Context) ([]models.Psychologist, error) {
	rows, err := r.db.Query(ctx, `SELECT `+psychologistColumns+` FROM psychologists ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query psychologists: %w", err)
	}
	defer rows.Close()

	var out []models.Psychologist
	for rows.Next() {
		p, err := scanPsychologist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan psychologist: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
