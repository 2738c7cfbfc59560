package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/usecase"
)

const defaultRunTimeout = 10 * time.Minute

// DailyScan fires the reminder pass once a day at the configured local
// reminder time and follows settings changes.
type DailyScan struct {
	settings  usecase.SettingsUseCase
	reminders usecase.ReminderUseCase
	notifier  adapter.Notifier
	log       *zerolog.Logger
	timeout   time.Duration

	mu    sync.Mutex
	ctx   context.Context
	cron  *cron.Cron
	entry cron.EntryID
	spec  string
}

func NewDailyScan(settings usecase.SettingsUseCase, reminders usecase.ReminderUseCase, notifier adapter.Notifier, logger *zerolog.Logger) *DailyScan {
	l := logger.With().Str("component", "DailyScan").Logger()
	return &DailyScan{
		settings:  settings,
		reminders: reminders,
		notifier:  notifier,
		log:       &l,
		timeout:   defaultRunTimeout,
	}
}

// cronSpec renders "CRON_TZ=<tz> <min> <hour> * * *" for cfg.
func cronSpec(cfg model.BillingConfig) (string, error) {
	h, m, err := cfg.ReminderClock()
	if err != nil {
		return "", err
	}
	if cfg.Timezone == "" {
		return "", fmt.Errorf("empty timezone")
	}
	spec := fmt.Sprintf("CRON_TZ=%s %d %d * * *", cfg.Timezone, m, h)
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return spec, nil
}

// Run schedules the job and blocks until ctx is cancelled.
func (s *DailyScan) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

// Start registers the job with the current settings. Calling it twice is a no-op.
func (s *DailyScan) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return nil
	}
	s.ctx = ctx
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{s.log}),
		cron.SkipIfStillRunning(cronLogger{s.log}),
	))
	s.mu.Unlock()

	if err := s.Reschedule(s.settings.Current()); err != nil {
		return err
	}
	s.settings.Subscribe(func(prev, next model.BillingConfig) {
		if prev.ReminderTime == next.ReminderTime && prev.Timezone == next.Timezone {
			return
		}
		if err := s.Reschedule(next); err != nil {
			s.log.Error().Err(err).Msg("reschedule after settings change failed")
		}
	})
	s.cron.Start()
	s.log.Info().Str("spec", s.Spec()).Msg("daily scan scheduled")
	return nil
}

// Reschedule swaps the cron entry for one matching cfg.
func (s *DailyScan) Reschedule(cfg model.BillingConfig) error {
	spec, err := cronSpec(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return fmt.Errorf("daily scan not started")
	}
	if spec == s.spec {
		return nil
	}
	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return err
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry, s.spec = id, spec
	s.log.Info().Str("spec", spec).Msg("daily scan rescheduled")
	return nil
}

// Spec returns the active cron expression.
func (s *DailyScan) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Next returns the next scheduled fire time, zero when not scheduled.
func (s *DailyScan) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil || s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Stop waits for a running pass to finish.
func (s *DailyScan) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.log.Info().Msg("daily scan stopped")
}

func (s *DailyScan) fire() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil || parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	// Read at fire time so admin updates apply to the very next pass.
	cfg := s.settings.Current()
	report, err := s.reminders.RunDailyScan(ctx, cfg, s.notifier)
	if err != nil {
		s.log.Error().Err(err).Msg("daily scan failed")
		return
	}
	if report.Skipped {
		s.log.Info().Msg("daily scan skipped; already ran elsewhere")
		return
	}
	s.log.Info().Str("run_id", report.RunID).Int("due", len(report.Due)).Int("sent", report.Sent()).Msg("daily scan done")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log *zerolog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug().Fields(kv).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
