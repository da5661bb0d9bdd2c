package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"emotiva/internal/database"
	"emotiva/internal/models"
)

// SchoolRepository handles schools, classes, students and student check-ins.
type SchoolRepository struct {
	db database.DBTX
}

func NewSchoolRepository(db database.DBTX) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// UpsertSchool creates or replaces the school profile of a school account.
func (r *SchoolRepository) UpsertSchool(ctx context.Context, s *models.School) error {
	_, err := r.db.Exec(ctx, r.db.GetDialect().UpsertSchoolQuery(), s.UserID, s.Name, s.City, s.State)
	if err != nil {
		return fmt.Errorf("failed to upsert school: %w", err)
	}
	return nil
}

func (r *SchoolRepository) GetSchool(ctx context.Context, userID int64) (*models.School, error) {
	s := &models.School{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, city, state, created_at, updated_at
		FROM schools WHERE user_id = ?`, userID).
		Scan(&s.ID, &s.UserID, &s.Name, &s.City, &s.State, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get school: %w", err)
	}
	return s, nil
}

func (r *SchoolRepository) ListSchools(ctx context.Context) ([]models.School, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, name, city, state, created_at, updated_at FROM schools ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schools: %w", err)
	}
	defer rows.Close()

	var out []models.School
	for rows.Next() {
		var s models.School
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.City, &s.State, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Classes

func (r *SchoolRepository) CreateClass(ctx context.Context, c *models.Class) error {
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO classes (school_user_id, name, grade, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.SchoolUserID, c.Name, c.Grade, c.Description, now, now)
	if err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

const classSelect = `
	SELECT c.id, c.school_user_id, c.name, c.grade, c.description, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM students s WHERE s.class_id = c.id)
	FROM classes c`

func scanClass(row rowScanner) (*models.Class, error) {
	c := &models.Class{}
	err := row.Scan(&c.ID, &c.SchoolUserID, &c.Name, &c.Grade, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.StudentCount)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *SchoolRepository) GetClass(ctx context.Context, id int64) (*models.Class, error) {
	c, err := scanClass(r.db.QueryRow(ctx, classSelect+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return c, nil
}

func (r *SchoolRepository) ListClasses(ctx context.Context, schoolUserID int64) ([]models.Class, error) {
	return r.listClasses(ctx, classSelect+` WHERE c.school_user_id = ? ORDER BY c.name, c.id`, schoolUserID)
}

func (r *SchoolRepository) ListAllClasses(ctx context.Context) ([]models.Class, error) {
	return r.listClasses(ctx, classSelect+` ORDER BY c.id`)
}

func (r *SchoolRepository) listClasses(ctx context.Context, query string, args ...any) ([]models.Class, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	out := []models.Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *SchoolRepository) UpdateClass(ctx context.Context, c *models.Class) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `UPDATE classes SET name = ?, grade = ?, description = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Grade, c.Description, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update class: %w", err)
	}
	return nil
}

func (r *SchoolRepository) DeleteClass(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM classes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}
	return nil
}

// Students

const studentColumns = `s.id, s.class_id, s.name, s.age, s.guardian_name, s.guardian_email, s.created_at, s.updated_at`

func scanStudent(row rowScanner) (*models.Student, error) {
	s := &models.Student{}
	err := row.Scan(&s.ID, &s.ClassID, &s.Name, &s.Age, &s.GuardianName, &s.GuardianEmail, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SchoolRepository) CreateStudent(ctx context.Context, s *models.Student) error {
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO students (class_id, name, age, guardian_name, guardian_email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ClassID, s.Name, s.Age, s.GuardianName, s.GuardianEmail, now, now)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (r *SchoolRepository) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	s, err := scanStudent(r.db.QueryRow(ctx, `SELECT `+studentColumns+` FROM students s WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

func (r *SchoolRepository) ListStudents(ctx context.Context, classID int64) ([]models.Student, error) {
	return r.listStudents(ctx, `SELECT `+studentColumns+` FROM students s WHERE s.class_id = ? ORDER BY s.name, s.id`, classID)
}

// ListSchoolStudents returns every student across a school's classes.
func (r *SchoolRepository) ListSchoolStudents(ctx context.Context, schoolUserID int64) ([]models.Student, error) {
	return r.listStudents(ctx, `
		SELECT `+studentColumns+` FROM students s
		JOIN classes c ON c.id = s.class_id
		WHERE c.school_user_id = ?
		ORDER BY s.name, s.id`, schoolUserID)
}

func (r *SchoolRepository) ListAllStudents(ctx context.Context) ([]models.Student, error) {
	return r.listStudents(ctx, `SELECT `+studentColumns+` FROM students s ORDER BY s.id`)
}

func (r *SchoolRepository) listStudents(ctx context.Context, query string, args ...any) ([]models.Student, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	out := []models.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SchoolRepository) UpdateStudent(ctx context.Context, s *models.Student) error {
	s.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		UPDATE students SET class_id = ?, name = ?, age = ?, guardian_name = ?, guardian_email = ?, updated_at = ?
		WHERE id = ?`,
		s.ClassID, s.Name, s.Age, s.GuardianName, s.GuardianEmail, s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	return nil
}

func (r *SchoolRepository) DeleteStudent(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return nil
}

// Student check-ins

func (r *SchoolRepository) CreateStudentCheckin(ctx context.Context, c *models.StudentCheckin) error {
	c.CreatedAt = time.Now().UTC()
	c.CheckinDate = civilDate(c.CheckinDate)
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO student_checkins (student_id, mood, checkin_date, note, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.StudentID, string(c.Mood), c.CheckinDate, c.Note, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create student checkin: %w", err)
	}
	c.ID = id
	return nil
}

// StudentCheckinFilter narrows a school's student check-ins. Zero values are ignored.
type StudentCheckinFilter struct {
	SchoolUserID int64
	ClassID      int64
	StudentID    int64
	From         time.Time
	To           time.Time
}

// ListStudentCheckins returns matching check-ins, oldest day first.
func (r *SchoolRepository) ListStudentCheckins(ctx context.Context, f StudentCheckinFilter) ([]models.StudentCheckin, error) {
	q := sq.Select("sc.id", "sc.student_id", "sc.mood", "sc.checkin_date", "sc.note", "sc.created_at").
		From("student_checkins sc").
		Join("students s ON s.id = sc.student_id").
		Join("classes c ON c.id = s.class_id").
		OrderBy("sc.checkin_date ASC", "sc.id ASC")

	if f.SchoolUserID != 0 {
		q = q.Where(sq.Eq{"c.school_user_id": f.SchoolUserID})
	}
	if f.ClassID != 0 {
		q = q.Where(sq.Eq{"s.class_id": f.ClassID})
	}
	if f.StudentID != 0 {
		q = q.Where(sq.Eq{"sc.student_id": f.StudentID})
	}
	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"sc.checkin_date": civilDate(f.From)})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.LtOrEq{"sc.checkin_date": civilDate(f.To)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student checkin query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query student checkins: %w", err)
	}
	defer rows.Close()

	out := []models.StudentCheckin{}
	for rows.Next() {
		var c models.StudentCheckin
		var mood string
		if err := rows.Scan(&c.ID, &c.StudentID, &mood, &c.CheckinDate, &c.Note, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan student checkin: %w", err)
		}
		c.Mood = models.Mood(mood)
		c.CheckinDate = civilDate(c.CheckinDate)
		out = append(out, c)
	}
	return out, rows.Err()
}
