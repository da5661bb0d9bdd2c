package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"emotiva/internal/credentials"
	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/repository"
	"emotiva/internal/validation"
)

const (
	schoolDashboardDays = 7
	schoolTopMoods      = 5
	inviteTTL           = 7 * 24 * time.Hour
)

var reportMoods = []models.Mood{models.MoodHappy, models.MoodNeutral, models.MoodSad}

type SchoolProfileInput struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	City  string `json:"city" validate:"max=80"`
	State string `json:"state" validate:"max=80"`
}

type ClassInput struct {
	Name        string `json:"name" validate:"required,max=80"`
	Grade       string `json:"grade" validate:"max=40"`
	Description string `json:"description" validate:"max=500"`
}

type StudentInput struct {
	Name          string `json:"name" validate:"required,max=120"`
	Age           int    `json:"age" validate:"gte=0,lte=25"`
	GuardianName  string `json:"guardian_name" validate:"max=120"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email,max=254"`
}

type StudentCheckinInput struct {
	Mood string `json:"mood" validate:"required,mood"`
	Date string `json:"date"`
	Note string `json:"note" validate:"max=1000"`
}

// SchoolDashboard is the seven-day overview of a school account.
type SchoolDashboard struct {
	School   *models.School     `json:"school"`
	Classes  []models.Class     `json:"classes"`
	Students int                `json:"students"`
	Recent   []models.MoodShare `json:"recent"`
}

// SchoolService manages a school's classes, students and their check-ins.
type SchoolService struct {
	repo        *repository.SchoolRepository
	invitations *repository.InvitationRepository
	mailer      Mailer
	loc         *time.Location
	logger      *slog.Logger
	now         func() time.Time
}

func NewSchoolService(repo *repository.SchoolRepository, invitations *repository.InvitationRepository, mailer Mailer, loc *time.Location, logger *slog.Logger) *SchoolService {
	return &SchoolService{
		repo:        repo,
		invitations: invitations,
		mailer:      mailer,
		loc:         loc,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *SchoolService) Profile(ctx context.Context, userID int64) (*models.School, error) {
	sc, err := s.repo.GetSchool(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("school profile: %w", domain.ErrNotFound)
	}
	return sc, nil
}

func (s *SchoolService) SaveProfile(ctx context.Context, userID int64, in SchoolProfileInput) (*models.School, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	sc := &models.School{UserID: userID, Name: in.Name, City: in.City, State: in.State}
	if err := s.repo.UpsertSchool(ctx, sc); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// Classes

func (s *SchoolService) Classes(ctx context.Context, userID int64) ([]models.Class, error) {
	return s.repo.ListClasses(ctx, userID)
}

// Class returns the class with its students when userID owns it.
func (s *SchoolService) Class(ctx context.Context, userID, classID int64) (*models.Class, []models.Student, error) {
	c, err := s.ownedClass(ctx, userID, classID)
	if err != nil {
		return nil, nil, err
	}
	students, err := s.repo.ListStudents(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, students, nil
}

func (s *SchoolService) ownedClass(ctx context.Context, userID, classID int64) (*models.Class, error) {
	c, err := s.repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.SchoolUserID != userID {
		return nil, fmt.Errorf("class %d: %w", classID, domain.ErrNotFound)
	}
	return c, nil
}

func (s *SchoolService) CreateClass(ctx context.Context, userID int64, in ClassInput) (*models.Class, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c := &models.Class{SchoolUserID: userID, Name: in.Name, Grade: in.Grade, Description: in.Description}
	if err := s.repo.CreateClass(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SchoolService) UpdateClass(ctx context.Context, userID, classID int64, in ClassInput) (*models.Class, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c, err := s.ownedClass(ctx, userID, classID)
	if err != nil {
		return nil, err
	}
	c.Name, c.Grade, c.Description = in.Name, in.Grade, in.Description
	if err := s.repo.UpdateClass(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteClass removes the class. Students and their check-ins cascade.
func (s *SchoolService) DeleteClass(ctx context.Context, userID, classID int64) error {
	if _, err := s.ownedClass(ctx, userID, classID); err != nil {
		return err
	}
	return s.repo.DeleteClass(ctx, classID)
}

// Students

func (s *SchoolService) ownedStudent(ctx context.Context, userID, studentID int64) (*models.Student, *models.Class, error) {
	st, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	if st == nil {
		return nil, nil, fmt.Errorf("student %d: %w", studentID, domain.ErrNotFound)
	}
	c, err := s.ownedClass(ctx, userID, st.ClassID)
	if err != nil {
		return nil, nil, fmt.Errorf("student %d: %w", studentID, domain.ErrNotFound)
	}
	return st, c, nil
}

func (s *SchoolService) CreateStudent(ctx context.Context, userID, classID int64, in StudentInput) (*models.Student, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.GuardianEmail = strings.ToLower(strings.TrimSpace(in.GuardianEmail))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.ownedClass(ctx, userID, classID); err != nil {
		return nil, err
	}
	st := &models.Student{
		ClassID:       classID,
		Name:          in.Name,
		Age:           in.Age,
		GuardianName:  in.GuardianName,
		GuardianEmail: in.GuardianEmail,
	}
	if err := s.repo.CreateStudent(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SchoolService) UpdateStudent(ctx context.Context, userID, studentID int64, in StudentInput) (*models.Student, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.GuardianEmail = strings.ToLower(strings.TrimSpace(in.GuardianEmail))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	st, _, err := s.ownedStudent(ctx, userID, studentID)
	if err != nil {
		return nil, err
	}
	st.Name, st.Age, st.GuardianName, st.GuardianEmail = in.Name, in.Age, in.GuardianName, in.GuardianEmail
	if err := s.repo.UpdateStudent(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SchoolService) DeleteStudent(ctx context.Context, userID, studentID int64) error {
	if _, _, err := s.ownedStudent(ctx, userID, studentID); err != nil {
		return err
	}
	return s.repo.DeleteStudent(ctx, studentID)
}

// RecordCheckin stores a mood for the student. Several per day are allowed.
func (s *SchoolService) RecordCheckin(ctx context.Context, userID, studentID int64, in StudentCheckinInput) (*models.StudentCheckin, error) {
	in.Mood = strings.ToLower(strings.TrimSpace(in.Mood))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	now := s.now()
	day, err := ParseDay(in.Date, s.loc, now)
	if err != nil {
		return nil, err
	}
	if day.After(models.DateOf(now, s.loc)) {
		return nil, domain.NewValidationError("date", "must not be in the future")
	}
	if _, _, err := s.ownedStudent(ctx, userID, studentID); err != nil {
		return nil, err
	}

	c := &models.StudentCheckin{StudentID: studentID, Mood: models.Mood(in.Mood), CheckinDate: day, Note: in.Note}
	if err := s.repo.CreateStudentCheckin(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Dashboard summarises the school and its moods over the last seven days.
func (s *SchoolService) Dashboard(ctx context.Context, userID int64) (*SchoolDashboard, error) {
	school, err := s.repo.GetSchool(ctx, userID)
	if err != nil {
		return nil, err
	}
	classes, err := s.repo.ListClasses(ctx, userID)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.ListSchoolStudents(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := models.DateOf(s.now(), s.loc)
	checkins, err := s.repo.ListStudentCheckins(ctx, repository.StudentCheckinFilter{
		SchoolUserID: userID,
		From:         today.AddDate(0, 0, -(schoolDashboardDays - 1)),
		To:           today,
	})
	if err != nil {
		return nil, err
	}

	recent := MoodDistribution(checkins)
	if len(recent) > schoolTopMoods {
		recent = recent[:schoolTopMoods]
	}
	return &SchoolDashboard{School: school, Classes: classes, Students: len(students), Recent: recent}, nil
}

// Report aggregates student check-ins between from and to, inclusive.
// A non-nil classID restricts it to one owned class.
func (s *SchoolService) Report(ctx context.Context, userID int64, from, to time.Time, classID *int64) (*models.SchoolReport, error) {
	from, to = models.DateOf(from, s.loc), models.DateOf(to, s.loc)
	if err := validation.ValidateDateRange(from, to); err != nil {
		return nil, err
	}

	filter := repository.StudentCheckinFilter{SchoolUserID: userID, From: from, To: to}
	if classID != nil {
		if _, err := s.ownedClass(ctx, userID, *classID); err != nil {
			return nil, err
		}
		filter.ClassID = *classID
	}
	checkins, err := s.repo.ListStudentCheckins(ctx, filter)
	if err != nil {
		return nil, err
	}

	daily := []models.DailyCount{}
	for _, c := range checkins {
		if n := len(daily); n > 0 && models.SameDay(daily[n-1].Date, c.CheckinDate) {
			daily[n-1].Count++
			continue
		}
		daily = append(daily, models.DailyCount{Date: c.CheckinDate, Count: 1})
	}

	return &models.SchoolReport{
		From:         from,
		To:           to,
		ClassID:      classID,
		Total:        len(checkins),
		Distribution: MoodDistribution(checkins),
		Daily:        daily,
	}, nil
}

// MoodDistribution counts check-ins per mood, most frequent first. Percentages
// are rounded to one decimal.
func MoodDistribution(checkins []models.StudentCheckin) []models.MoodShare {
	counts := map[models.Mood]int{}
	for _, c := range checkins {
		counts[c.Mood]++
	}

	out := []models.MoodShare{}
	for _, m := range reportMoods {
		if counts[m] == 0 {
			continue
		}
		pct := float64(counts[m]) * 100 / float64(len(checkins))
		out = append(out, models.MoodShare{
			Mood:    m,
			Emoji:   m.Emoji(),
			Count:   counts[m],
			Percent: float64(int(pct*10+0.5)) / 10,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// InviteParent creates an invitation for the student's guardian and emails it.
// A failed email is logged; the invitation stays valid.
func (s *SchoolService) InviteParent(ctx context.Context, userID, studentID int64, email string) (*models.Invitation, error) {
	st, _, err := s.ownedStudent(ctx, userID, studentID)
	if err != nil {
		return nil, err
	}
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		email = st.GuardianEmail
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	inv := &models.Invitation{
		Email:     email,
		StudentID: st.ID,
		InvitedBy: userID,
		ExpiresAt: now.Add(inviteTTL),
	}
	for i := 0; i < codeAttempts; i++ {
		if inv.Code, err = credentials.GenerateInviteCode(); err != nil {
			return nil, err
		}
		err = s.invitations.Create(ctx, inv)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	inv.StudentName = st.Name

	schoolName := "Emotiva"
	if sc, err := s.repo.GetSchool(ctx, userID); err == nil && sc != nil {
		schoolName = sc.Name
	}
	if err := s.mailer.SendParentInvite(ctx, email, st.GuardianName, st.Name, schoolName, inv.Code); err != nil {
		s.logger.ErrorContext(ctx, "failed to send parent invite",
			slog.Int64("invitation_id", inv.ID),
			slog.String("error", err.Error()))
	}
	return inv, nil
}

// Summary counts classes and students for the dashboard.
func (s *SchoolService) Summary(ctx context.Context, userID int64) (*SchoolSummary, error) {
	school, err := s.repo.GetSchool(ctx, userID)
	if err != nil {
		return nil, err
	}
	classes, err := s.repo.ListClasses(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &SchoolSummary{School: school, Classes: len(classes)}
	for _, c := range classes {
		summary.Students += c.StudentCount
	}
	return summary, nil
}
