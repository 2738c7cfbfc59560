package application_test

import (
	"context"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/usecase"
)

type mockUserUC struct {
	users   map[int64]*model.User
	muted   map[int64]time.Time
	unmuted []int64
	err     error
}

func newMockUserUC(users ...*model.User) *mockUserUC {
	m := &mockUserUC{users: map[int64]*model.User{}, muted: map[int64]time.Time{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserUC) RegisterOrUpdate(ctx context.Context, tgID int64, handle, first, last string) (*model.User, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	_, existed := m.users[tgID]
	u, err := model.NewUser(tgID, handle, first, last)
	if err != nil {
		return nil, false, err
	}
	m.users[tgID] = u
	return u, !existed, nil
}

func (m *mockUserUC) Get(ctx context.Context, tgID int64) (*model.User, error) {
	if u, ok := m.users[tgID]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserUC) ParseUserRef(ctx context.Context, ref string) (*model.User, error) {
	for _, u := range m.users {
		if "@"+u.Handle == ref {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserUC) Mute(ctx context.Context, tgID int64, until time.Time) error {
	m.muted[tgID] = until
	return nil
}

func (m *mockUserUC) Unmute(ctx context.Context, tgID int64) error {
	m.unmuted = append(m.unmuted, tgID)
	return nil
}

func (m *mockUserUC) Count(ctx context.Context) (int, error) { return len(m.users), nil }

type mockPaymentUC struct {
	BeginFunc   func(ctx context.Context, userID int64, months int) (*model.PendingIntent, error)
	AttachFunc  func(ctx context.Context, userID int64, proofRef string, now time.Time) (*model.Payment, error)
	CancelFunc  func(ctx context.Context, userID int64) (bool, error)
	HistoryFunc func(ctx context.Context, userID int64, limit int) ([]*model.Payment, error)
	DeleteFunc  func(ctx context.Context, id string) (*model.Payment, error)
}

func (m *mockPaymentUC) BeginPayment(ctx context.Context, userID int64, months int) (*model.PendingIntent, error) {
	return m.BeginFunc(ctx, userID, months)
}
func (m *mockPaymentUC) AttachProof(ctx context.Context, userID int64, proofRef string, now time.Time) (*model.Payment, error) {
	return m.AttachFunc(ctx, userID, proofRef, now)
}
func (m *mockPaymentUC) CancelPayment(ctx context.Context, userID int64) (bool, error) {
	return m.CancelFunc(ctx, userID)
}
func (m *mockPaymentUC) History(ctx context.Context, userID int64, limit int) ([]*model.Payment, error) {
	return m.HistoryFunc(ctx, userID, limit)
}
func (m *mockPaymentUC) DeletePayment(ctx context.Context, id string) (*model.Payment, error) {
	return m.DeleteFunc(ctx, id)
}

type mockScanUC struct {
	DueUsersFunc func(ctx context.Context, cfg model.BillingConfig, now time.Time) (*usecase.ScanResult, error)
	CoverageFunc func(ctx context.Context, userID int64, cfg model.BillingConfig, now time.Time) (*usecase.UserCoverage, error)
}

func (m *mockScanUC) DueUsers(ctx context.Context, cfg model.BillingConfig, now time.Time) (*usecase.ScanResult, error) {
	return m.DueUsersFunc(ctx, cfg, now)
}
func (m *mockScanUC) Coverage(ctx context.Context, userID int64, cfg model.BillingConfig, now time.Time) (*usecase.UserCoverage, error) {
	return m.CoverageFunc(ctx, userID, cfg, now)
}

type mockSettingsUC struct {
	cfg model.BillingConfig
}

func (m *mockSettingsUC) Init(ctx context.Context) (model.BillingConfig, error) { return m.cfg, nil }
func (m *mockSettingsUC) Current() model.BillingConfig                         { return m.cfg }
func (m *mockSettingsUC) Update(ctx context.Context, patch model.BillingPatch) (model.BillingConfig, error) {
	next := patch.Apply(m.cfg)
	if err := next.Validate(); err != nil {
		return m.cfg, err
	}
	m.cfg = next
	return next, nil
}
func (m *mockSettingsUC) Subscribe(fn usecase.SettingsListener) {}

type mockReminderUC struct {
	report   *usecase.ScanReport
	err      error
	notifier adapter.Notifier
}

func (m *mockReminderUC) RunDailyScan(ctx context.Context, cfg model.BillingConfig, n adapter.Notifier) (*usecase.ScanReport, error) {
	return m.RunScan(ctx, cfg, n)
}
func (m *mockReminderUC) RunScan(ctx context.Context, cfg model.BillingConfig, n adapter.Notifier) (*usecase.ScanReport, error) {
	m.notifier = n
	return m.report, m.err
}
