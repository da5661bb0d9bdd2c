package service

import (
	"context"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v76"

	"emotiva/internal/models"
)

// Hand-written mocks in the moq layout: a Func field per method and a
// recorded-calls accessor.

type latestCheckinFinderMock struct {
	LatestForChildFunc func(ctx context.Context, childID int64, since time.Time) (*models.Checkin, error)

	mu    sync.Mutex
	calls []latestForChildCall
}

type latestForChildCall struct {
	ChildID int64
	Since   time.Time
}

func (m *latestCheckinFinderMock) LatestForChild(ctx context.Context, childID int64, since time.Time) (*models.Checkin, error) {
	m.mu.Lock()
	m.calls = append(m.calls, latestForChildCall{ChildID: childID, Since: since})
	m.mu.Unlock()
	return m.LatestForChildFunc(ctx, childID, since)
}

func (m *latestCheckinFinderMock) LatestForChildCalls() []latestForChildCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]latestForChildCall(nil), m.calls...)
}

type weeklyCheckinListerMock struct {
	ListForChildBetweenFunc func(ctx context.Context, childID int64, from, to time.Time) ([]models.Checkin, error)

	mu    sync.Mutex
	calls [][2]time.Time
}

func (m *weeklyCheckinListerMock) ListForChildBetween(ctx context.Context, childID int64, from, to time.Time) ([]models.Checkin, error) {
	m.mu.Lock()
	m.calls = append(m.calls, [2]time.Time{from, to})
	m.mu.Unlock()
	return m.ListForChildBetweenFunc(ctx, childID, from, to)
}

func (m *weeklyCheckinListerMock) ListForChildBetweenCalls() [][2]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]time.Time(nil), m.calls...)
}

type childGetterMock struct {
	GetByIDFunc func(ctx context.Context, id int64) (*models.Child, error)
}

func (m *childGetterMock) GetByID(ctx context.Context, id int64) (*models.Child, error) {
	return m.GetByIDFunc(ctx, id)
}

type profileGetterMock struct {
	GetUserByIDFunc func(ctx context.Context, id int64) (*models.User, error)

	mu    sync.Mutex
	calls []int64
}

func (m *profileGetterMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	m.calls = append(m.calls, id)
	m.mu.Unlock()
	return m.GetUserByIDFunc(ctx, id)
}

func (m *profileGetterMock) GetUserByIDCalls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.calls...)
}

type guardianChildListerMock struct {
	ListByGuardianFunc func(ctx context.Context, guardianID int64) ([]models.Child, error)

	mu    sync.Mutex
	calls []int64
}

func (m *guardianChildListerMock) ListByGuardian(ctx context.Context, guardianID int64) ([]models.Child, error) {
	m.mu.Lock()
	m.calls = append(m.calls, guardianID)
	m.mu.Unlock()
	return m.ListByGuardianFunc(ctx, guardianID)
}

func (m *guardianChildListerMock) ListByGuardianCalls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.calls...)
}

type notificationListerMock struct {
	ListForRecipientFunc func(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error)

	mu     sync.Mutex
	limits []int
}

func (m *notificationListerMock) ListForRecipient(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	m.limits = append(m.limits, limit)
	m.mu.Unlock()
	return m.ListForRecipientFunc(ctx, recipientID, limit)
}

func (m *notificationListerMock) ListForRecipientCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.limits...)
}

type alertComputerMock struct {
	AlertsForFunc func(ctx context.Context, children []models.Child, now time.Time) ([]models.Alert, error)

	mu    sync.Mutex
	calls [][]models.Child
}

func (m *alertComputerMock) AlertsFor(ctx context.Context, children []models.Child, now time.Time) ([]models.Alert, error) {
	m.mu.Lock()
	m.calls = append(m.calls, children)
	m.mu.Unlock()
	return m.AlertsForFunc(ctx, children, now)
}

func (m *alertComputerMock) AlertsForCalls() [][]models.Child {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]models.Child(nil), m.calls...)
}

type schoolSummarizerMock struct {
	SummaryFunc func(ctx context.Context, schoolUserID int64) (*SchoolSummary, error)
}

func (m *schoolSummarizerMock) Summary(ctx context.Context, schoolUserID int64) (*SchoolSummary, error) {
	return m.SummaryFunc(ctx, schoolUserID)
}

type psychologistSummarizerMock struct {
	SummaryFunc func(ctx context.Context, userID int64) (*PsychologistSummary, error)
}

func (m *psychologistSummarizerMock) Summary(ctx context.Context, userID int64) (*PsychologistSummary, error) {
	return m.SummaryFunc(ctx, userID)
}

type subscriberStoreMock struct {
	GetByEmailFunc func(ctx context.Context, email string) (*models.Subscriber, error)
	UpsertFunc     func(ctx context.Context, s *models.Subscriber) error

	mu      sync.Mutex
	upserts []models.Subscriber
}

func (m *subscriberStoreMock) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	return m.GetByEmailFunc(ctx, email)
}

func (m *subscriberStoreMock) Upsert(ctx context.Context, s *models.Subscriber) error {
	m.mu.Lock()
	m.upserts = append(m.upserts, *s)
	m.mu.Unlock()
	if m.UpsertFunc == nil {
		return nil
	}
	return m.UpsertFunc(ctx, s)
}

func (m *subscriberStoreMock) UpsertCalls() []models.Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Subscriber(nil), m.upserts...)
}

type paymentGatewayMock struct {
	ParseEventFunc    func(payload []byte, signature string) (stripe.Event, error)
	CustomerEmailFunc func(ctx context.Context, customerID string) (string, error)
	CheckoutURLFunc   func(ctx context.Context, email, successURL, cancelURL string) (string, error)
	PortalURLFunc     func(ctx context.Context, customerID, returnURL string) (string, error)
}

func (m *paymentGatewayMock) ParseEvent(payload []byte, signature string) (stripe.Event, error) {
	return m.ParseEventFunc(payload, signature)
}

func (m *paymentGatewayMock) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	return m.CustomerEmailFunc(ctx, customerID)
}

func (m *paymentGatewayMock) CheckoutURL(ctx context.Context, email, successURL, cancelURL string) (string, error) {
	return m.CheckoutURLFunc(ctx, email, successURL, cancelURL)
}

func (m *paymentGatewayMock) PortalURL(ctx context.Context, customerID, returnURL string) (string, error) {
	return m.PortalURLFunc(ctx, customerID, returnURL)
}

type sentMail struct {
	Kind  string
	To    string
	Extra []string
}

type mailerMock struct {
	Err error

	mu   sync.Mutex
	sent []sentMail
}

func (m *mailerMock) record(kind, to string, extra ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Kind: kind, To: to, Extra: extra})
	return m.Err
}

func (m *mailerMock) SendWelcome(_ context.Context, toEmail, toName string) error {
	return m.record("welcome", toEmail, toName)
}

func (m *mailerMock) SendPasswordReset(_ context.Context, toEmail, toName, token string) error {
	return m.record("reset", toEmail, toName, token)
}

func (m *mailerMock) SendParentInvite(_ context.Context, toEmail, guardianName, studentName, schoolName, code string) error {
	return m.record("invite", toEmail, guardianName, studentName, schoolName, code)
}

func (m *mailerMock) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type premiumGateMock struct {
	RequirePremiumFunc func(ctx context.Context, email string) error
}

func (m *premiumGateMock) RequirePremium(ctx context.Context, email string) error {
	return m.RequirePremiumFunc(ctx, email)
}
