package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emotiva/internal/database"
	"emotiva/internal/domain"
	"emotiva/internal/models"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Open(filepath.Join(t.TempDir(), "emotiva.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), "../../migrations"))
	return db
}

func createUser(t *testing.T, db *database.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: "User " + email, Role: role, PasswordHash: "hash"}
	require.NoError(t, NewUserRepository(db).CreateUser(context.Background(), u))
	return u
}

func createChild(t *testing.T, db *database.DB, guardianID int64, name string) *models.Child {
	t.Helper()
	c := &models.Child{GuardianID: guardianID, Name: name, Age: 7}
	require.NoError(t, NewChildRepository(db).Create(context.Background(), c))
	return c
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUserRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	u := createUser(t, db, "Ana@Example.com", models.RoleGuardian)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "ana@example.com", u.Email)

	got, err := repo.GetUserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.RoleGuardian, got.Role)

	missing, err := repo.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := &models.User{Email: "ana@example.com", Name: "Dup", Role: models.RoleGuardian}
	err = repo.CreateUser(ctx, dup)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	require.NoError(t, repo.LinkOAuthProvider(ctx, u.ID, "google", "sub-1"))
	assert.True(t, errors.Is(repo.LinkOAuthProvider(ctx, u.ID, "google", "sub-2"), domain.ErrConflict))

	byOAuth, err := repo.GetUserByOAuth(ctx, "google", "sub-1")
	require.NoError(t, err)
	require.NotNil(t, byOAuth)
	assert.Equal(t, u.ID, byOAuth.ID)
}

func TestUserRepository_SessionsAndResetTokens(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	u := createUser(t, db, "s@example.com", models.RoleSchool)

	_, err := repo.CreateSession(ctx, "live", u.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.CreateSession(ctx, "stale", u.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	n, err := repo.DeleteExpiredSessions(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, err := repo.GetSession(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, u.ID, s.UserID)

	require.NoError(t, repo.DeleteUserSessions(ctx, u.ID))
	s, err = repo.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, repo.CreateResetToken(ctx, "tok", u.ID, time.Now().Add(time.Hour)))
	tok, err := repo.GetResetToken(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.False(t, tok.Used)

	require.NoError(t, repo.MarkResetTokenUsed(ctx, "tok"))
	tok, err = repo.GetResetToken(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, tok.Used)
}

func TestChildRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewChildRepository(db)
	g := createUser(t, db, "g@example.com", models.RoleGuardian)

	a := createChild(t, db, g.ID, "Ana")
	createChild(t, db, g.ID, "Bia")

	children, err := repo.ListByGuardian(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Ana", children[0].Name)

	a.Name = "Ana Clara"
	a.Age = 8
	require.NoError(t, repo.Update(ctx, a))
	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Clara", got.Name)
	assert.Equal(t, 8, got.Age)

	none, err := repo.ListByGuardian(ctx, g.ID+100)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCheckinRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewCheckinRepository(db)
	g := createUser(t, db, "g@example.com", models.RoleGuardian)
	child := createChild(t, db, g.ID, "Ana")

	yes, no := true, false
	intensity := 4
	for _, c := range []*models.Checkin{
		{ChildID: child.ID, ChosenDate: day(2024, 3, 4), Mood: models.MoodHappy, SleptWell: &yes},
		{ChildID: child.ID, ChosenDate: day(2024, 3, 6), Mood: models.MoodSad, SleptWell: &no, Intensity: &intensity, Note: "tired"},
		{ChildID: child.ID, ChosenDate: day(2024, 3, 5), Mood: models.MoodNeutral},
	} {
		require.NoError(t, repo.Create(ctx, c))
	}

	err := repo.Create(ctx, &models.Checkin{ChildID: child.ID, ChosenDate: day(2024, 3, 6), Mood: models.MoodHappy})
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	latest, err := repo.LatestForChild(ctx, child.ID, day(2024, 3, 4))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.MoodSad, latest.Mood)
	assert.True(t, latest.ChosenDate.Equal(day(2024, 3, 6)))
	require.NotNil(t, latest.SleptWell)
	assert.False(t, *latest.SleptWell)
	assert.Nil(t, latest.SomethingBad)
	require.NotNil(t, latest.Intensity)
	assert.Equal(t, 4, *latest.Intensity)

	none, err := repo.LatestForChild(ctx, child.ID, day(2024, 3, 7))
	require.NoError(t, err)
	assert.Nil(t, none)

	week, err := repo.ListForChildBetween(ctx, child.ID, day(2024, 3, 5), day(2024, 3, 10))
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.Equal(t, models.MoodNeutral, week[0].Mood)
	assert.Equal(t, models.MoodSad, week[1].Mood)

	require.NoError(t, repo.DeleteForChild(ctx, child.ID))
	all, err := repo.ListForChild(ctx, child.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNotificationRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewNotificationRepository(db)
	u := createUser(t, db, "p@example.com", models.RolePsychologist)

	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &models.Notification{RecipientID: u.ID, Message: msg}))
	}

	list, err := repo.ListForRecipient(ctx, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].Message)

	changed, err := repo.MarkRead(ctx, list[0].ID, u.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkRead(ctx, list[0].ID, u.ID+1)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSharedReportRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	g := createUser(t, db, "g@example.com", models.RoleGuardian)
	pu := createUser(t, db, "p@example.com", models.RolePsychologist)
	child := createChild(t, db, g.ID, "Ana")

	psych := &models.Psychologist{UserID: pu.ID, Name: "Dr. P", CRP: "06/1234", PublicCode: "PSI-ABC234"}
	require.NoError(t, NewPsychologistRepository(db).Create(ctx, psych))

	got, err := NewPsychologistRepository(db).GetByCode(ctx, "PSI-ABC234")
	require.NoError(t, err)
	require.NotNil(t, got)

	repo := NewSharedReportRepository(db)
	share := &models.SharedReport{ChildID: child.ID, GuardianID: g.ID, PsychologistID: psych.ID}
	require.NoError(t, repo.Create(ctx, share))

	active, err := repo.FindActive(ctx, child.ID, psych.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "Ana", active.ChildName)
	assert.Equal(t, "Dr. P", active.PsychologistName)

	ok, err := repo.HasAccepted(ctx, child.ID, psych.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.UpdateStatus(ctx, share.ID, models.ShareAccepted))
	ok, err = repo.HasAccepted(ctx, child.ID, psych.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	accepted, err := repo.ListForPsychologist(ctx, psych.ID, models.ShareAccepted)
	require.NoError(t, err)
	assert.Len(t, accepted, 1)

	require.NoError(t, repo.UpdateStatus(ctx, share.ID, models.ShareRevoked))
	active, err = repo.FindActive(ctx, child.ID, psych.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSharedReportRepository_OneActiveSharePerPair(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	g := createUser(t, db, "g@example.com", models.RoleGuardian)
	pu := createUser(t, db, "p@example.com", models.RolePsychologist)
	child := createChild(t, db, g.ID, "Ana")
	psych := &models.Psychologist{UserID: pu.ID, Name: "Dr. P", CRP: "06/1234", PublicCode: "PSI-ABC234"}
	require.NoError(t, NewPsychologistRepository(db).Create(ctx, psych))

	repo := NewSharedReportRepository(db)
	first := &models.SharedReport{ChildID: child.ID, GuardianID: g.ID, PsychologistID: psych.ID}
	require.NoError(t, repo.Create(ctx, first))

	tests := []struct {
		name    string
		status  models.ShareStatus
		wantErr bool
	}{
		{"pending blocks", models.SharePending, true},
		{"accepted blocks", models.ShareAccepted, true},
		{"declined frees the pair", models.ShareDeclined, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, repo.UpdateStatus(ctx, first.ID, tt.status))
			again := &models.SharedReport{ChildID: child.ID, GuardianID: g.ID, PsychologistID: psych.ID}
			err := repo.Create(ctx, again)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrAlreadyExists)
				return
			}
			require.NoError(t, err)
			// The new share is now the active one.
			err = repo.Create(ctx, &models.SharedReport{ChildID: child.ID, GuardianID: g.ID, PsychologistID: psych.ID})
			assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		})
	}
}

func TestChildDeleteInTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	g := createUser(t, db, "g@example.com", models.RoleGuardian)
	child := createChild(t, db, g.ID, "Ana")
	require.NoError(t, NewCheckinRepository(db).Create(ctx,
		&models.Checkin{ChildID: child.ID, ChosenDate: day(2024, 3, 4), Mood: models.MoodHappy}))

	// Without clearing check-ins first the foreign key blocks the delete.
	assert.Error(t, NewChildRepository(db).Delete(ctx, child.ID))

	err := db.WithTx(ctx, func(tx *database.Tx) error {
		if err := NewCheckinRepository(tx).DeleteForChild(ctx, child.ID); err != nil {
			return err
		}
		if err := NewSharedReportRepository(tx).DeleteForChild(ctx, child.ID); err != nil {
			return err
		}
		return NewChildRepository(tx).Delete(ctx, child.ID)
	})
	require.NoError(t, err)

	got, err := NewChildRepository(db).GetByID(ctx, child.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSchoolRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewSchoolRepository(db)
	su := createUser(t, db, "school@example.com", models.RoleSchool)

	require.NoError(t, repo.UpsertSchool(ctx, &models.School{UserID: su.ID, Name: "Escola A", City: "Recife", State: "PE"}))
	require.NoError(t, repo.UpsertSchool(ctx, &models.School{UserID: su.ID, Name: "Escola B", City: "Recife", State: "PE"}))
	school, err := repo.GetSchool(ctx, su.ID)
	require.NoError(t, err)
	require.NotNil(t, school)
	assert.Equal(t, "Escola B", school.Name)

	class := &models.Class{SchoolUserID: su.ID, Name: "1A", Grade: "1"}
	require.NoError(t, repo.CreateClass(ctx, class))
	other := &models.Class{SchoolUserID: su.ID, Name: "2B", Grade: "2"}
	require.NoError(t, repo.CreateClass(ctx, other))

	s1 := &models.Student{ClassID: class.ID, Name: "Caio", Age: 6}
	s2 := &models.Student{ClassID: other.ID, Name: "Duda", Age: 7}
	require.NoError(t, repo.CreateStudent(ctx, s1))
	require.NoError(t, repo.CreateStudent(ctx, s2))

	classes, err := repo.ListClasses(ctx, su.ID)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, 1, classes[0].StudentCount)

	for _, c := range []*models.StudentCheckin{
		{StudentID: s1.ID, Mood: models.MoodHappy, CheckinDate: day(2024, 3, 4)},
		{StudentID: s1.ID, Mood: models.MoodSad, CheckinDate: day(2024, 3, 5)},
		{StudentID: s2.ID, Mood: models.MoodNeutral, CheckinDate: day(2024, 3, 5)},
		{StudentID: s2.ID, Mood: models.MoodNeutral, CheckinDate: day(2024, 3, 9)},
	} {
		require.NoError(t, repo.CreateStudentCheckin(ctx, c))
	}

	all, err := repo.ListStudentCheckins(ctx, StudentCheckinFilter{SchoolUserID: su.ID, From: day(2024, 3, 4), To: day(2024, 3, 5)})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byClass, err := repo.ListStudentCheckins(ctx, StudentCheckinFilter{SchoolUserID: su.ID, ClassID: other.ID})
	require.NoError(t, err)
	assert.Len(t, byClass, 2)

	students, err := repo.ListSchoolStudents(ctx, su.ID)
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestInvitationRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	su := createUser(t, db, "school@example.com", models.RoleSchool)
	sr := NewSchoolRepository(db)
	class := &models.Class{SchoolUserID: su.ID, Name: "1A"}
	require.NoError(t, sr.CreateClass(ctx, class))
	student := &models.Student{ClassID: class.ID, Name: "Caio"}
	require.NoError(t, sr.CreateStudent(ctx, student))

	repo := NewInvitationRepository(db)
	inv := &models.Invitation{Code: "ABCD2345", Email: "mom@example.com", StudentID: student.ID, InvitedBy: su.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, inv))

	got, err := repo.GetByCode(ctx, "ABCD2345")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Caio", got.StudentName)
	assert.True(t, got.IsValid())

	g := createUser(t, db, "mom@example.com", models.RoleGuardian)
	require.NoError(t, repo.MarkUsed(ctx, "ABCD2345", g.ID))
	assert.True(t, errors.Is(repo.MarkUsed(ctx, "ABCD2345", g.ID), domain.ErrConflict))
}

func TestSubscriberRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewSubscriberRepository(db)

	premium := models.TierPremium
	end := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	require.NoError(t, repo.Upsert(ctx, &models.Subscriber{Email: "G@example.com", StripeCustomerID: "cus_1", Subscribed: true, Tier: &premium, SubscriptionEnd: &end}))

	s, err := repo.GetByEmail(ctx, "g@example.com")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.CanAccessPremium())
	require.NotNil(t, s.SubscriptionEnd)
	assert.True(t, s.SubscriptionEnd.Equal(end))

	require.NoError(t, repo.Upsert(ctx, &models.Subscriber{Email: "g@example.com", StripeCustomerID: "cus_1"}))
	s, err = repo.GetByEmail(ctx, "g@example.com")
	require.NoError(t, err)
	assert.False(t, s.Subscribed)
	assert.Nil(t, s.Tier)
	assert.Nil(t, s.SubscriptionEnd)
}
