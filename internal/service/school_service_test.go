package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emotiva/internal/domain"
	"emotiva/internal/models"
	"emotiva/internal/repository"
	"emotiva/internal/security"
)

func TestMoodDistribution(t *testing.T) {
	checkins := []models.StudentCheckin{
		{Mood: models.MoodHappy}, {Mood: models.MoodSad}, {Mood: models.MoodHappy},
		{Mood: models.MoodHappy}, {Mood: models.MoodNeutral}, {Mood: models.MoodSad},
	}
	got := MoodDistribution(checkins)
	require.Len(t, got, 3)
	assert.Equal(t, models.MoodShare{Mood: models.MoodHappy, Emoji: "😀", Count: 3, Percent: 50}, got[0])
	assert.Equal(t, models.MoodSad, got[1].Mood)
	assert.Equal(t, 33.3, got[1].Percent)
	assert.Equal(t, 16.7, got[2].Percent)

	assert.Empty(t, MoodDistribution(nil))
}

func TestSchoolService(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mailer := &mailerMock{}
	s := NewSchoolService(repository.NewSchoolRepository(db), repository.NewInvitationRepository(db), mailer, time.UTC, testLogger())
	s.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }

	school := createUser(t, db, "school@example.com", models.RoleSchool)
	rival := createUser(t, db, "rival@example.com", models.RoleSchool)

	_, err := s.Profile(ctx, school.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	profile, err := s.SaveProfile(ctx, school.ID, SchoolProfileInput{Name: "Escola Sol", City: "Recife", State: "PE"})
	require.NoError(t, err)
	assert.Equal(t, "Escola Sol", profile.Name)
	profile, err = s.SaveProfile(ctx, school.ID, SchoolProfileInput{Name: "Escola Lua", City: "Recife", State: "PE"})
	require.NoError(t, err)
	assert.Equal(t, "Escola Lua", profile.Name)

	class, err := s.CreateClass(ctx, school.ID, ClassInput{Name: "3A", Grade: "3"})
	require.NoError(t, err)
	other, err := s.CreateClass(ctx, school.ID, ClassInput{Name: "4B"})
	require.NoError(t, err)

	_, _, err = s.Class(ctx, rival.ID, class.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	student, err := s.CreateStudent(ctx, school.ID, class.ID, StudentInput{Name: "Ana", Age: 8, GuardianName: "Maria", GuardianEmail: "Maria@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", student.GuardianEmail)
	peer, err := s.CreateStudent(ctx, school.ID, other.ID, StudentInput{Name: "Bia", Age: 9})
	require.NoError(t, err)

	_, err = s.CreateStudent(ctx, rival.ID, class.ID, StudentInput{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.RecordCheckin(ctx, rival.ID, student.ID, StudentCheckinInput{Mood: "happy"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	record := func(id int64, mood, date string) {
		t.Helper()
		_, err := s.RecordCheckin(ctx, school.ID, id, StudentCheckinInput{Mood: mood, Date: date})
		require.NoError(t, err)
	}
	record(student.ID, "happy", "2024-03-10")
	record(student.ID, "happy", "2024-03-10")
	record(student.ID, "sad", "2024-03-08")
	record(peer.ID, "neutral", "2024-03-09")
	record(student.ID, "sad", "2024-02-20")

	_, err = s.RecordCheckin(ctx, school.ID, student.ID, StudentCheckinInput{Mood: "happy", Date: "2024-03-11"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	dash, err := s.Dashboard(ctx, school.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, dash.Students)
	assert.Len(t, dash.Classes, 2)
	require.Len(t, dash.Recent, 3)
	assert.Equal(t, models.MoodHappy, dash.Recent[0].Mood)
	assert.Equal(t, 50.0, dash.Recent[0].Percent)

	classID := class.ID
	report, err := s.Report(ctx, school.ID, day(2024, 3, 1), day(2024, 3, 10), &classID)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, []models.DailyCount{
		{Date: day(2024, 3, 8), Count: 1},
		{Date: day(2024, 3, 10), Count: 2},
	}, report.Daily)

	all, err := s.Report(ctx, school.ID, day(2024, 2, 1), day(2024, 3, 10), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, all.Total)

	_, err = s.Report(ctx, school.ID, day(2024, 3, 10), day(2024, 3, 1), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	summary, err := s.Summary(ctx, school.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Classes)
	assert.Equal(t, 2, summary.Students)

	inv, err := s.InviteParent(ctx, school.ID, student.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", inv.Email)
	assert.Len(t, inv.Code, 8)
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"Maria", "Ana", "Escola Lua", inv.Code}, sent[0].Extra)

	_, err = s.InviteParent(ctx, school.ID, peer.ID, "")
	assert.ErrorIs(t, err, domain.ErrValidation, "no guardian email on file")

	auth := NewAuthService(db, mailer, security.NewTokenManager(testSecret, "emotiva-test", time.Hour), time.Hour, testLogger())
	_, err = auth.Register(ctx, RegisterInput{Name: "Dr X", Email: "x@example.com", Password: "secret123", Role: "psychologist", CRP: "1", InviteCode: inv.Code})
	assert.ErrorIs(t, err, domain.ErrValidation)

	parent, err := auth.Register(ctx, RegisterInput{Name: "Maria", Email: "maria@example.com", Password: "secret123", InviteCode: inv.Code})
	require.NoError(t, err)
	stored, err := repository.NewInvitationRepository(db).GetByCode(ctx, inv.Code)
	require.NoError(t, err)
	require.NotNil(t, stored.UsedBy)
	assert.Equal(t, parent.ID, *stored.UsedBy)

	_, err = auth.Register(ctx, RegisterInput{Name: "Joao", Email: "joao@example.com", Password: "secret123", InviteCode: inv.Code})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, s.DeleteClass(ctx, school.ID, class.ID))
	_, _, err = s.Class(ctx, school.ID, class.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	left, err := repository.NewSchoolRepository(db).ListStudentCheckins(ctx, repository.StudentCheckinFilter{SchoolUserID: school.ID})
	require.NoError(t, err)
	assert.Len(t, left, 1, "student check-ins cascade with the class")
}

func TestBackupService_RoundTrip(t *testing.T) {
	src := setupDB(t)
	ctx := context.Background()

	guardian := createUser(t, src, "g@example.com", models.RoleGuardian)
	child := &models.Child{GuardianID: guardian.ID, Name: "Ana", Age: 7}
	require.NoError(t, repository.NewChildRepository(src).Create(ctx, child))
	require.NoError(t, repository.NewCheckinRepository(src).Create(ctx, &models.Checkin{
		ChildID: child.ID, ChosenDate: day(2024, 3, 10), Mood: models.MoodSad, SleptWell: boolp(false), CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, repository.NewNotificationRepository(src).Create(ctx, &models.Notification{RecipientID: guardian.ID, Message: "hi"}))

	psychUser := createUser(t, src, "dr@example.com", models.RolePsychologist)
	profile := &models.Psychologist{UserID: psychUser.ID, Name: "Dr", CRP: "1"}
	require.NoError(t, createPsychologistProfile(ctx, repository.NewPsychologistRepository(src), profile))
	require.NoError(t, repository.NewSharedReportRepository(src).Create(ctx, &models.SharedReport{
		ChildID: child.ID, GuardianID: guardian.ID, PsychologistID: profile.ID,
	}))

	schoolUser := createUser(t, src, "s@example.com", models.RoleSchool)
	schools := repository.NewSchoolRepository(src)
	require.NoError(t, schools.UpsertSchool(ctx, &models.School{UserID: schoolUser.ID, Name: "Escola"}))
	class := &models.Class{SchoolUserID: schoolUser.ID, Name: "3A"}
	require.NoError(t, schools.CreateClass(ctx, class))
	student := &models.Student{ClassID: class.ID, Name: "Bia"}
	require.NoError(t, schools.CreateStudent(ctx, student))
	require.NoError(t, schools.CreateStudentCheckin(ctx, &models.StudentCheckin{StudentID: student.ID, Mood: models.MoodHappy, CheckinDate: day(2024, 3, 9)}))
	require.NoError(t, repository.NewInvitationRepository(src).Create(ctx, &models.Invitation{
		Code: "ABCD2345", Email: "p@example.com", StudentID: student.ID, InvitedBy: schoolUser.ID, ExpiresAt: time.Now().Add(time.Hour),
	}))
	tier := models.TierPremium
	require.NoError(t, repository.NewSubscriberRepository(src).Upsert(ctx, &models.Subscriber{Email: "g@example.com", Subscribed: true, Tier: &tier}))

	var buf bytes.Buffer
	exported, err := NewBackupService(src, testLogger()).Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, BackupVersion, exported.Version)
	assert.Contains(t, buf.String(), `"password_hash": "hash"`)

	dst := setupDB(t)
	restore := NewBackupService(dst, testLogger())
	raw := buf.Bytes()

	imported, err := restore.Import(ctx, bytes.NewReader(raw), false)
	require.NoError(t, err)
	assert.Equal(t, exported.Summary(), imported.Summary())

	again, err := restore.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, exported.Summary(), again.Summary())
	require.Len(t, again.Checkins, 1)
	assert.Equal(t, day(2024, 3, 10), again.Checkins[0].ChosenDate)
	require.NotNil(t, again.Checkins[0].SleptWell)
	assert.False(t, *again.Checkins[0].SleptWell)
	assert.Equal(t, "hash", again.Users[0].PasswordHash)
	assert.True(t, again.Subscribers[0].CanAccessPremium())

	_, err = restore.Import(ctx, bytes.NewReader(raw), false)
	assert.Error(t, err, "ids collide without clear")

	_, err = restore.Import(ctx, bytes.NewReader(raw), true)
	require.NoError(t, err)

	fresh := &models.Child{GuardianID: guardian.ID, Name: "New", Age: 3}
	require.NoError(t, repository.NewChildRepository(dst).Create(ctx, fresh))
	assert.Greater(t, fresh.ID, child.ID)

	_, err = restore.Import(ctx, bytes.NewReader([]byte(`{"version":"1.0"}`)), true)
	assert.Error(t, err)

	require.NoError(t, restore.Clear(ctx))
	empty, err := restore.Collect(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Users)
}
