package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
	"billing-reminder-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ SettingsUseCase = (*settingsUC)(nil)

// SettingsListener is called after a successful update with the previous and
// the new config.
type SettingsListener func(prev, next model.BillingConfig)

// SettingsUseCase owns the process-wide BillingConfig. Reads are lock-protected
// snapshots; writes validate, persist and then swap (last write wins).
type SettingsUseCase interface {
	// Init loads the persisted config, seeding it with the defaults on first run.
	Init(ctx context.Context) (model.BillingConfig, error)
	Current() model.BillingConfig
	Update(ctx context.Context, patch model.BillingPatch) (model.BillingConfig, error)
	Subscribe(fn SettingsListener)
}

type settingsUC struct {
	repo     repository.SettingsRepository
	defaults model.BillingConfig
	log      *zerolog.Logger

	mu        sync.RWMutex
	current   model.BillingConfig
	listeners []SettingsListener
}

func NewSettingsUseCase(repo repository.SettingsRepository, defaults model.BillingConfig, logger *zerolog.Logger) *settingsUC {
	return &settingsUC{
		repo:     repo,
		defaults: defaults,
		current:  defaults,
		log:      logger,
	}
}

func (u *settingsUC) Init(ctx context.Context) (model.BillingConfig, error) {
	defer logging.TraceDuration(u.log, "SettingsUC.Init")()

	stored, err := u.repo.Load(ctx, repository.NoTX)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cfg := u.defaults
		if err := cfg.Validate(); err != nil {
			return model.BillingConfig{}, err
		}
		cfg.UpdatedAt = time.Now().UTC()
		if err := u.repo.Save(ctx, repository.NoTX, &cfg); err != nil {
			return model.BillingConfig{}, fmt.Errorf("seed billing settings: %w", err)
		}
		u.log.Info().Int("billing_day", cfg.BillingDay).Str("timezone", cfg.Timezone).Msg("billing settings seeded from config")
		u.swap(cfg)
		return cfg, nil
	case err != nil:
		return model.BillingConfig{}, fmt.Errorf("load billing settings: %w", err)
	}

	cfg := *stored
	if err := cfg.Validate(); err != nil {
		u.log.Warn().Err(err).Msg("stored billing settings are invalid; using defaults")
		cfg = u.defaults
	}
	u.swap(cfg)
	return cfg, nil
}

func (u *settingsUC) Current() model.BillingConfig {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.current
}

func (u *settingsUC) Update(ctx context.Context, patch model.BillingPatch) (model.BillingConfig, error) {
	defer logging.TraceDuration(u.log, "SettingsUC.Update")()

	if patch.IsEmpty() {
		return u.Current(), nil
	}
	prev := u.Current()
	next := patch.Apply(prev)
	if err := next.Validate(); err != nil {
		return prev, err
	}
	next.UpdatedAt = time.Now().UTC()
	if err := u.repo.Save(ctx, repository.NoTX, &next); err != nil {
		u.log.Error().Err(err).Msg("failed to persist billing settings")
		return prev, err
	}

	u.swap(next)
	u.log.Info().
		Int("billing_day", next.BillingDay).
		Str("timezone", next.Timezone).
		Int64("monthly_amount", next.MonthlyAmount).
		Str("reminder_time", next.ReminderTime).
		Str("fold_policy", string(next.Policy())).
		Msg("billing settings updated")

	u.mu.RLock()
	listeners := append([]SettingsListener(nil), u.listeners...)
	u.mu.RUnlock()
	for _, fn := range listeners {
		fn(prev, next)
	}
	return next, nil
}

func (u *settingsUC) Subscribe(fn SettingsListener) {
	if fn == nil {
		return
	}
	u.mu.Lock()
	u.listeners = append(u.listeners, fn)
	u.mu.Unlock()
}

func (u *settingsUC) swap(cfg model.BillingConfig) {
	if _, err := cfg.LoadLocation(); err != nil {
		u.log.Warn().Err(err).Msg("billing timezone does not resolve; local dates fall back to UTC")
	}
	u.mu.Lock()
	u.current = cfg
	u.mu.Unlock()
}
