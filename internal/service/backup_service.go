package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"emotiva/internal/database"
	"emotiva/internal/models"
	"emotiva/internal/repository"
)

// BackupVersion is written into every export. Imports of other versions are refused.
const BackupVersion = "2.0"

// UserRecord is a user including the credentials the API never serialises.
type UserRecord struct {
	models.User
	PasswordHash string `json:"password_hash"`
	OAuthSubject string `json:"oauth_subject"`
}

// BackupData is the complete portable dump of the database.
type BackupData struct {
	Version         string                  `json:"version"`
	ExportedAt      time.Time               `json:"exported_at"`
	DatabaseType    string                  `json:"database_type"`
	Users           []UserRecord            `json:"users"`
	Children        []models.Child          `json:"children"`
	Checkins        []models.Checkin        `json:"checkins"`
	Notifications   []models.Notification   `json:"notifications"`
	Psychologists   []models.Psychologist   `json:"psychologists"`
	SharedReports   []models.SharedReport   `json:"shared_reports"`
	Schools         []models.School         `json:"schools"`
	Classes         []models.Class          `json:"classes"`
	Students        []models.Student        `json:"students"`
	StudentCheckins []models.StudentCheckin `json:"student_checkins"`
	Invitations     []models.Invitation     `json:"invitations"`
	Subscribers     []models.Subscriber     `json:"subscribers"`
}

// Summary is a one-line count of every section, for logs.
func (b *BackupData) Summary() string {
	return fmt.Sprintf("%d users, %d children, %d checkins, %d notifications, %d psychologists, %d shares, %d schools, %d classes, %d students, %d student checkins, %d invitations, %d subscribers",
		len(b.Users), len(b.Children), len(b.Checkins), len(b.Notifications), len(b.Psychologists),
		len(b.SharedReports), len(b.Schools), len(b.Classes), len(b.Students), len(b.StudentCheckins),
		len(b.Invitations), len(b.Subscribers))
}

// clearOrder lists tables children-first so deletes never violate a foreign key.
var clearOrder = []string{
	"invitations",
	"student_checkins",
	"students",
	"classes",
	"schools",
	"shared_reports",
	"psychologists",
	"notifications",
	"checkins",
	"children",
	"subscribers",
	"password_reset_tokens",
	"sessions",
	"users",
}

// BackupService exports and restores the database as versioned JSON.
type BackupService struct {
	db     *database.DB
	logger *slog.Logger
}

func NewBackupService(db *database.DB, logger *slog.Logger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

// Collect reads every table into a BackupData.
func (s *BackupService) Collect(ctx context.Context) (*BackupData, error) {
	b := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	users, err := repository.NewUserRepository(s.db).ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	b.Users = make([]UserRecord, 0, len(users))
	for _, u := range users {
		b.Users = append(b.Users, UserRecord{User: u, PasswordHash: u.PasswordHash, OAuthSubject: u.OAuthSubject})
	}

	if b.Children, err = repository.NewChildRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export children: %w", err)
	}
	if b.Checkins, err = repository.NewCheckinRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export checkins: %w", err)
	}
	if b.Notifications, err = repository.NewNotificationRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export notifications: %w", err)
	}
	if b.Psychologists, err = repository.NewPsychologistRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export psychologists: %w", err)
	}
	if b.SharedReports, err = repository.NewSharedReportRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export shared reports: %w", err)
	}

	schools := repository.NewSchoolRepository(s.db)
	if b.Schools, err = schools.ListSchools(ctx); err != nil {
		return nil, fmt.Errorf("failed to export schools: %w", err)
	}
	if b.Classes, err = schools.ListAllClasses(ctx); err != nil {
		return nil, fmt.Errorf("failed to export classes: %w", err)
	}
	if b.Students, err = schools.ListAllStudents(ctx); err != nil {
		return nil, fmt.Errorf("failed to export students: %w", err)
	}
	if b.StudentCheckins, err = schools.ListStudentCheckins(ctx, repository.StudentCheckinFilter{}); err != nil {
		return nil, fmt.Errorf("failed to export student checkins: %w", err)
	}

	if b.Invitations, err = repository.NewInvitationRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export invitations: %w", err)
	}
	if b.Subscribers, err = repository.NewSubscriberRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export subscribers: %w", err)
	}
	return b, nil
}

// Export writes an indented JSON dump to w.
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	b, err := s.Collect(ctx)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	s.logger.InfoContext(ctx, "backup exported", slog.String("contents", b.Summary()))
	return b, nil
}

// Import restores a dump read from r in a single transaction. With clear set,
// existing rows are deleted first; otherwise id collisions abort the import.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clear bool) (*BackupData, error) {
	var b BackupData
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if b.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q (want %s)", b.Version, BackupVersion)
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			if err := clearTables(ctx, tx); err != nil {
				return err
			}
		}
		if err := restore(ctx, tx, &b); err != nil {
			return err
		}
		return resetSequences(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "backup imported",
		slog.String("exported_at", b.ExportedAt.Format(time.RFC3339)),
		slog.Bool("cleared", clear),
		slog.String("contents", b.Summary()))
	return &b, nil
}

// Clear deletes every row of every application table.
func (s *BackupService) Clear(ctx context.Context) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		return clearTables(ctx, tx)
	})
}

func clearTables(ctx context.Context, tx database.DBTX) error {
	for _, table := range clearOrder {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

func resetSequences(ctx context.Context, tx database.DBTX) error {
	for _, table := range clearOrder {
		if table == "sessions" || table == "password_reset_tokens" {
			continue
		}
		q := tx.GetDialect().ResetSequenceQuery(table)
		if q == "" {
			return nil
		}
		if _, err := tx.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to reset sequence of %s: %w", table, err)
		}
	}
	return nil
}

// insertStep restores one section of the dump.
type insertStep struct {
	name  string
	count int
	row   func(i int) (string, []any)
}

func restore(ctx context.Context, tx database.DBTX, b *BackupData) error {
	steps := []insertStep{
		{"users", len(b.Users), func(i int) (string, []any) {
			u := b.Users[i]
			return `INSERT INTO users (id, email, password_hash, name, role, oauth_provider, oauth_subject, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				[]any{u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), u.OAuthProvider, u.OAuthSubject, u.CreatedAt.UTC(), u.UpdatedAt.UTC()}
		}},
		{"children", len(b.Children), func(i int) (string, []any) {
			c := b.Children[i]
			return `INSERT INTO children (id, guardian_id, name, age, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
				[]any{c.ID, c.GuardianID, c.Name, c.Age, c.CreatedAt.UTC(), c.UpdatedAt.UTC()}
		}},
		{"checkins", len(b.Checkins), func(i int) (string, []any) {
			c := b.Checkins[i]
			return `INSERT INTO checkins (id, child_id, chosen_date, mood, slept_well, something_bad, note, intensity, observations, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				[]any{c.ID, c.ChildID, c.ChosenDate.UTC(), string(c.Mood), c.SleptWell, c.SomethingBad, c.Note, c.Intensity, c.Observations, c.CreatedAt.UTC()}
		}},
		{"notifications", len(b.Notifications), func(i int) (string, []any) {
			n := b.Notifications[i]
			return `INSERT INTO notifications (id, recipient_id, message, read_at, created_at) VALUES (?, ?, ?, ?, ?)`,
				[]any{n.ID, n.RecipientID, n.Message, n.ReadAt, n.CreatedAt.UTC()}
		}},
		{"psychologists", len(b.Psychologists), func(i int) (string, []any) {
			p := b.Psychologists[i]
			return `INSERT INTO psychologists (id, user_id, name, crp, specialty, phone, public_code, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				[]any{p.ID, p.UserID, p.Name, p.CRP, p.Specialty, p.Phone, p.PublicCode, p.CreatedAt.UTC()}
		}},
		{"shared_reports", len(b.SharedReports), func(i int) (string, []any) {
			s := b.SharedReports[i]
			return `INSERT INTO shared_reports (id, child_id, guardian_id, psychologist_id, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				[]any{s.ID, s.ChildID, s.GuardianID, s.PsychologistID, string(s.Status), s.CreatedAt.UTC(), s.UpdatedAt.UTC()}
		}},
		{"schools", len(b.Schools), func(i int) (string, []any) {
			s := b.Schools[i]
			return `INSERT INTO schools (id, user_id, name, city, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				[]any{s.ID, s.UserID, s.Name, s.City, s.State, s.CreatedAt.UTC(), s.UpdatedAt.UTC()}
		}},
		{"classes", len(b.Classes), func(i int) (string, []any) {
			c := b.Classes[i]
			return `INSERT INTO classes (id, school_user_id, name, grade, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				[]any{c.ID, c.SchoolUserID, c.Name, c.Grade, c.Description, c.CreatedAt.UTC(), c.UpdatedAt.UTC()}
		}},
		{"students", len(b.Students), func(i int) (string, []any) {
			s := b.Students[i]
			return `INSERT INTO students (id, class_id, name, age, guardian_name, guardian_email, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				[]any{s.ID, s.ClassID, s.Name, s.Age, s.GuardianName, s.GuardianEmail, s.CreatedAt.UTC(), s.UpdatedAt.UTC()}
		}},
		{"student_checkins", len(b.StudentCheckins), func(i int) (string, []any) {
			c := b.StudentCheckins[i]
			return `INSERT INTO student_checkins (id, student_id, mood, checkin_date, note, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
				[]any{c.ID, c.StudentID, string(c.Mood), c.CheckinDate.UTC(), c.Note, c.CreatedAt.UTC()}
		}},
		{"invitations", len(b.Invitations), func(i int) (string, []any) {
			inv := b.Invitations[i]
			return `INSERT INTO invitations (id, code, email, student_id, invited_by, created_at, expires_at, used_at, used_by)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				[]any{inv.ID, inv.Code, inv.Email, inv.StudentID, inv.InvitedBy, inv.CreatedAt.UTC(), inv.ExpiresAt.UTC(), inv.UsedAt, inv.UsedBy}
		}},
		{"subscribers", len(b.Subscribers), func(i int) (string, []any) {
			s := b.Subscribers[i]
			return `INSERT INTO subscribers (id, email, stripe_customer_id, subscribed, subscription_tier, subscription_end, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				[]any{s.ID, s.Email, s.StripeCustomerID, s.Subscribed, s.Tier, s.SubscriptionEnd, s.UpdatedAt.UTC()}
		}},
	}

	for _, step := range steps {
		for i := 0; i < step.count; i++ {
			query, args := step.row(i)
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to import %s #%d: %w", step.name, i, err)
			}
		}
	}
	return nil
}
