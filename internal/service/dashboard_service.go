package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"emotiva/internal/appctx"
	"emotiva/internal/domain"
	"emotiva/internal/models"
)

// Stage names one step of a dashboard load.
type Stage string

const (
	StageIdentity      Stage = "identity"
	StageProfile       Stage = "profile"
	StageChildren      Stage = "children"
	StageNotifications Stage = "notifications"
	StageAlerts        Stage = "alerts"
	StageSummary       Stage = "summary"
)

// StageError ties a failure to the dashboard stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("dashboard %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageFailure is the client-facing record of a degraded stage.
type StageFailure struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// SchoolSummary is shown on a school account's dashboard.
type SchoolSummary struct {
	School   *models.School `json:"school"`
	Classes  int            `json:"classes"`
	Students int            `json:"students"`
}

// PsychologistSummary is shown on a psychologist account's dashboard.
type PsychologistSummary struct {
	Profile         *models.Psychologist `json:"profile"`
	AcceptedReports int                  `json:"accepted_reports"`
	PendingInvites  int                  `json:"pending_invites"`
}

// DashboardView is everything one dashboard render needs.
type DashboardView struct {
	Profile         *models.User          `json:"profile"`
	Children        []models.Child        `json:"children"`
	SelectedChildID int64                 `json:"selected_child_id,omitempty"`
	Notifications   []models.Notification `json:"notifications"`
	Alerts          []models.Alert        `json:"alerts"`
	School          *SchoolSummary        `json:"school,omitempty"`
	Psychologist    *PsychologistSummary  `json:"psychologist,omitempty"`
	Errors          []StageFailure        `json:"errors,omitempty"`
}

type profileGetter interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type guardianChildLister interface {
	ListByGuardian(ctx context.Context, guardianID int64) ([]models.Child, error)
}

type notificationLister interface {
	ListForRecipient(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error)
}

type alertComputer interface {
	AlertsFor(ctx context.Context, children []models.Child, now time.Time) ([]models.Alert, error)
}

type schoolSummarizer interface {
	Summary(ctx context.Context, schoolUserID int64) (*SchoolSummary, error)
}

type psychologistSummarizer interface {
	Summary(ctx context.Context, userID int64) (*PsychologistSummary, error)
}

// DashboardService runs the dashboard stages in order. Identity and profile
// failures abort the load; later stages degrade to empty data.
type DashboardService struct {
	profiles           profileGetter
	children           guardianChildLister
	notifications      notificationLister
	alerts             alertComputer
	schools            schoolSummarizer
	psychologists      psychologistSummarizer
	notificationsLimit int
	logger             *slog.Logger
	now                func() time.Time
}

type DashboardDeps struct {
	Profiles           profileGetter
	Children           guardianChildLister
	Notifications      notificationLister
	Alerts             alertComputer
	Schools            schoolSummarizer
	Psychologists      psychologistSummarizer
	NotificationsLimit int
	Logger             *slog.Logger
}

func NewDashboardService(deps DashboardDeps) *DashboardService {
	limit := deps.NotificationsLimit
	if limit < 1 {
		limit = 20
	}
	return &DashboardService{
		profiles:           deps.Profiles,
		children:           deps.Children,
		notifications:      deps.Notifications,
		alerts:             deps.Alerts,
		schools:            deps.Schools,
		psychologists:      deps.Psychologists,
		notificationsLimit: limit,
		logger:             deps.Logger,
		now:                time.Now,
	}
}

// Load builds the dashboard for sess. The selected child is corrected on
// sess when it is missing or no longer owned.
func (s *DashboardService) Load(ctx context.Context, sess *appctx.Session) (*DashboardView, error) {
	if sess == nil || sess.User == nil || sess.User.ID == 0 {
		return nil, &StageError{Stage: StageIdentity, Err: domain.ErrUnauthorized}
	}

	profile, err := s.profiles.GetUserByID(ctx, sess.User.ID)
	if err != nil {
		return nil, &StageError{Stage: StageProfile, Err: err}
	}
	if profile == nil {
		return nil, &StageError{Stage: StageIdentity, Err: domain.ErrUnauthorized}
	}

	view := &DashboardView{
		Profile:       profile,
		Children:      []models.Child{},
		Notifications: []models.Notification{},
		Alerts:        []models.Alert{},
	}

	if profile.Role == models.RoleGuardian {
		children, err := s.children.ListByGuardian(ctx, profile.ID)
		if err != nil {
			s.degrade(ctx, view, StageChildren, "could not load children", err)
		} else {
			view.Children = children
		}
		view.SelectedChildID = selectChild(view.Children, sess.SelectedChildID)
		sess.SelectedChildID = view.SelectedChildID
	}

	notifications, err := s.notifications.ListForRecipient(ctx, profile.ID, s.notificationsLimit)
	if err != nil {
		s.degrade(ctx, view, StageNotifications, "could not load notifications", err)
	} else {
		view.Notifications = notifications
	}

	if profile.Role == models.RoleGuardian && len(view.Children) > 0 {
		alerts, err := s.alerts.AlertsFor(ctx, view.Children, s.now())
		if err != nil {
			s.degrade(ctx, view, StageAlerts, "could not compute alerts", err)
		} else {
			view.Alerts = alerts
		}
	}

	switch profile.Role {
	case models.RoleSchool:
		if s.schools != nil {
			summary, err := s.schools.Summary(ctx, profile.ID)
			if err != nil {
				s.degrade(ctx, view, StageSummary, "could not load school summary", err)
			} else {
				view.School = summary
			}
		}
	case models.RolePsychologist:
		if s.psychologists != nil {
			summary, err := s.psychologists.Summary(ctx, profile.ID)
			if err != nil {
				s.degrade(ctx, view, StageSummary, "could not load psychologist summary", err)
			} else {
				view.Psychologist = summary
			}
		}
	}

	return view, nil
}

func (s *DashboardService) degrade(ctx context.Context, view *DashboardView, stage Stage, msg string, err error) {
	s.logger.WarnContext(ctx, "dashboard stage degraded",
		slog.String("stage", string(stage)),
		slog.String("error", err.Error()))
	view.Errors = append(view.Errors, StageFailure{Stage: stage, Message: msg})
}

// selectChild keeps current when it is still owned, otherwise picks the first child.
func selectChild(children []models.Child, current int64) int64 {
	if len(children) == 0 {
		return 0
	}
	for _, c := range children {
		if c.ID == current {
			return current
		}
	}
	return children[0].ID
}
