package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emotiva/internal/appctx"
	"emotiva/internal/domain"
	"emotiva/internal/models"
)

type dashboardFixture struct {
	profiles      *profileGetterMock
	children      *guardianChildListerMock
	notifications *notificationListerMock
	alerts        *alertComputerMock
	schools       *schoolSummarizerMock
	psychologists *psychologistSummarizerMock
}

func newDashboardFixture(role models.Role) *dashboardFixture {
	return &dashboardFixture{
		profiles: &profileGetterMock{
			GetUserByIDFunc: func(_ context.Context, id int64) (*models.User, error) {
				return &models.User{ID: id, Name: "Maria", Role: role}, nil
			},
		},
		children: &guardianChildListerMock{
			ListByGuardianFunc: func(context.Context, int64) ([]models.Child, error) {
				return []models.Child{{ID: 10, Name: "Ana"}, {ID: 11, Name: "Bia"}}, nil
			},
		},
		notifications: &notificationListerMock{
			ListForRecipientFunc: func(context.Context, int64, int) ([]models.Notification, error) {
				return []models.Notification{{ID: 1, Message: "hello"}}, nil
			},
		},
		alerts: &alertComputerMock{
			AlertsForFunc: func(_ context.Context, children []models.Child, _ time.Time) ([]models.Alert, error) {
				return []models.Alert{{Child: children[0], Issues: []string{IssueSad}}}, nil
			},
		},
		schools: &schoolSummarizerMock{
			SummaryFunc: func(context.Context, int64) (*SchoolSummary, error) {
				return &SchoolSummary{Classes: 2, Students: 30}, nil
			},
		},
		psychologists: &psychologistSummarizerMock{
			SummaryFunc: func(context.Context, int64) (*PsychologistSummary, error) {
				return &PsychologistSummary{AcceptedReports: 3, PendingInvites: 1}, nil
			},
		},
	}
}

func (f *dashboardFixture) service() *DashboardService {
	return NewDashboardService(DashboardDeps{
		Profiles:      f.profiles,
		Children:      f.children,
		Notifications: f.notifications,
		Alerts:        f.alerts,
		Schools:       f.schools,
		Psychologists: f.psychologists,
		Logger:        testLogger(),
	})
}

func guardianSession(selected int64) *appctx.Session {
	return &appctx.Session{User: &models.User{ID: 5, Role: models.RoleGuardian}, SelectedChildID: selected}
}

func TestDashboardService_Identity(t *testing.T) {
	f := newDashboardFixture(models.RoleGuardian)
	s := f.service()

	for name, sess := range map[string]*appctx.Session{
		"nil session": nil,
		"no user":     {},
		"zero id":     {User: &models.User{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), sess)
			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, StageIdentity, stageErr.Stage)
			assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		})
	}
	assert.Empty(t, f.profiles.GetUserByIDCalls())
}

func TestDashboardService_ProfileFailureStops(t *testing.T) {
	f := newDashboardFixture(models.RoleGuardian)
	f.profiles.GetUserByIDFunc = func(context.Context, int64) (*models.User, error) {
		return nil, errors.New("db down")
	}

	_, err := f.service().Load(context.Background(), guardianSession(0))
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageProfile, stageErr.Stage)
	assert.False(t, errors.Is(err, domain.ErrUnauthorized))

	assert.Empty(t, f.children.ListByGuardianCalls())
	assert.Empty(t, f.notifications.ListForRecipientCalls())
	assert.Empty(t, f.alerts.AlertsForCalls())
}

func TestDashboardService_MissingProfileIsUnauthorized(t *testing.T) {
	f := newDashboardFixture(models.RoleGuardian)
	f.profiles.GetUserByIDFunc = func(context.Context, int64) (*models.User, error) { return nil, nil }

	_, err := f.service().Load(context.Background(), guardianSession(0))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestDashboardService_Guardian(t *testing.T) {
	tests := []struct {
		name     string
		selected int64
		want     int64
	}{
		{"nothing selected picks first", 0, 10},
		{"stale selection picks first", 99, 10},
		{"valid selection kept", 11, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDashboardFixture(models.RoleGuardian)
			sess := guardianSession(tt.selected)

			view, err := f.service().Load(context.Background(), sess)
			require.NoError(t, err)

			assert.Equal(t, tt.want, view.SelectedChildID)
			assert.Equal(t, tt.want, sess.SelectedChildID)
			assert.Len(t, view.Children, 2)
			assert.Len(t, view.Notifications, 1)
			require.Len(t, view.Alerts, 1)
			assert.Equal(t, "Ana", view.Alerts[0].Child.Name)
			assert.Empty(t, view.Errors)
			assert.Nil(t, view.School)

			assert.Equal(t, []int{20}, f.notifications.ListForRecipientCalls())
			require.Len(t, f.alerts.AlertsForCalls(), 1)
			assert.Len(t, f.alerts.AlertsForCalls()[0], 2)
		})
	}
}

func TestDashboardService_DegradedStages(t *testing.T) {
	t.Run("children failure skips alerts", func(t *testing.T) {
		f := newDashboardFixture(models.RoleGuardian)
		f.children.ListByGuardianFunc = func(context.Context, int64) ([]models.Child, error) {
			return nil, errors.New("timeout")
		}

		view, err := f.service().Load(context.Background(), guardianSession(10))
		require.NoError(t, err)
		assert.NotNil(t, view.Children)
		assert.Empty(t, view.Children)
		assert.Zero(t, view.SelectedChildID)
		assert.Len(t, view.Notifications, 1)
		assert.Empty(t, f.alerts.AlertsForCalls())
		require.Len(t, view.Errors, 1)
		assert.Equal(t, StageChildren, view.Errors[0].Stage)
	})

	t.Run("notifications and alerts failures", func(t *testing.T) {
		f := newDashboardFixture(models.RoleGuardian)
		f.notifications.ListForRecipientFunc = func(context.Context, int64, int) ([]models.Notification, error) {
			return nil, errors.New("boom")
		}
		f.alerts.AlertsForFunc = func(context.Context, []models.Child, time.Time) ([]models.Alert, error) {
			return nil, context.DeadlineExceeded
		}

		view, err := f.service().Load(context.Background(), guardianSession(0))
		require.NoError(t, err)
		assert.Len(t, view.Children, 2)
		assert.NotNil(t, view.Notifications)
		assert.Empty(t, view.Notifications)
		assert.NotNil(t, view.Alerts)
		assert.Empty(t, view.Alerts)
		require.Len(t, view.Errors, 2)
		assert.Equal(t, StageNotifications, view.Errors[0].Stage)
		assert.Equal(t, StageAlerts, view.Errors[1].Stage)
	})

	t.Run("no children means no alert run", func(t *testing.T) {
		f := newDashboardFixture(models.RoleGuardian)
		f.children.ListByGuardianFunc = func(context.Context, int64) ([]models.Child, error) {
			return []models.Child{}, nil
		}

		view, err := f.service().Load(context.Background(), guardianSession(0))
		require.NoError(t, err)
		assert.Empty(t, view.Errors)
		assert.Empty(t, f.alerts.AlertsForCalls())
	})
}

func TestDashboardService_RoleSummaries(t *testing.T) {
	t.Run("school", func(t *testing.T) {
		f := newDashboardFixture(models.RoleSchool)
		view, err := f.service().Load(context.Background(), guardianSession(0))
		require.NoError(t, err)
		require.NotNil(t, view.School)
		assert.Equal(t, 30, view.School.Students)
		assert.Nil(t, view.Psychologist)
		assert.Empty(t, f.children.ListByGuardianCalls())
		assert.Empty(t, f.alerts.AlertsForCalls())
	})

	t.Run("psychologist", func(t *testing.T) {
		f := newDashboardFixture(models.RolePsychologist)
		view, err := f.service().Load(context.Background(), guardianSession(0))
		require.NoError(t, err)
		require.NotNil(t, view.Psychologist)
		assert.Equal(t, 3, view.Psychologist.AcceptedReports)
		assert.Equal(t, 1, view.Psychologist.PendingInvites)
	})

	t.Run("summary failure degrades", func(t *testing.T) {
		f := newDashboardFixture(models.RoleSchool)
		f.schools.SummaryFunc = func(context.Context, int64) (*SchoolSummary, error) {
			return nil, errors.New("boom")
		}
		view, err := f.service().Load(context.Background(), guardianSession(0))
		require.NoError(t, err)
		assert.Nil(t, view.School)
		require.Len(t, view.Errors, 1)
		assert.Equal(t, StageSummary, view.Errors[0].Stage)
	})
}
