//go:build !integration

package web

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type mockSettingsUC struct {
	cfg        model.BillingConfig
	UpdateFunc func(ctx context.Context, patch model.BillingPatch) (model.BillingConfig, error)
}

func (m *mockSettingsUC) Init(ctx context.Context) (model.BillingConfig, error) { return m.cfg, nil }
func (m *mockSettingsUC) Current() model.BillingConfig                         { return m.cfg }
func (m *mockSettingsUC) Update(ctx context.Context, patch model.BillingPatch) (model.BillingConfig, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, patch)
	}
	m.cfg = patch.Apply(m.cfg)
	return m.cfg, nil
}
func (m *mockSettingsUC) Subscribe(fn usecase.SettingsListener) {}

type mockScanUC struct {
	CoverageFunc func(ctx context.Context, userID int64, cfg model.BillingConfig, now time.Time) (*usecase.UserCoverage, error)
}

func (m *mockScanUC) DueUsers(ctx context.Context, cfg model.BillingConfig, now time.Time) (*usecase.ScanResult, error) {
	return &usecase.ScanResult{}, nil
}
func (m *mockScanUC) Coverage(ctx context.Context, userID int64, cfg model.BillingConfig, now time.Time) (*usecase.UserCoverage, error) {
	return m.CoverageFunc(ctx, userID, cfg, now)
}

type mockReminderUC struct {
	RunScanFunc func(ctx context.Context, cfg model.BillingConfig, n adapter.Notifier) (*usecase.ScanReport, error)
}

func (m *mockReminderUC) RunDailyScan(ctx context.Context, cfg model.BillingConfig, n adapter.Notifier) (*usecase.ScanReport, error) {
	return m.RunScanFunc(ctx, cfg, n)
}
func (m *mockReminderUC) RunScan(ctx context.Context, cfg model.BillingConfig, n adapter.Notifier) (*usecase.ScanReport, error) {
	return m.RunScanFunc(ctx, cfg, n)
}
