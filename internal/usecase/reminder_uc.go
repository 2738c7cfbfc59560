package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/domain/ports/repository"
	"billing-reminder-bot/internal/infra/i18n"
	"billing-reminder-bot/internal/infra/logging"
	"billing-reminder-bot/internal/infra/metrics"
	"billing-reminder-bot/internal/infra/worker"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	dailyLockPrefix = "lock:daily_scan:"
	manualLockKey   = "lock:scan:manual"
	dispatchTimeout = 15 * time.Second
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

// DispatchResult is the outcome of one reminder delivery.
type DispatchResult struct {
	UserID    int64
	Delivered bool
	Err       error
}

// ScanReport aggregates one reminder pass.
type ScanReport struct {
	RunID    string
	Date     time.Time
	Scanned  int
	Muted    int
	Due      []DueUser
	Results  []DispatchResult // same order as Due
	Failures []ScanFailure
	Skipped  bool // another worker holds the run lock
}

func (r *ScanReport) Sent() int {
	n := 0
	for _, res := range r.Results {
		if res.Delivered {
			n++
		}
	}
	return n
}

func (r *ScanReport) Failed() int { return len(r.Results) - r.Sent() }

type ReminderUseCase interface {
	// RunDailyScan is the scheduled entry point. The per-date lock is kept
	// until its TTL expires so replicas firing on the same day skip. It is
	// released when the pass fails before dispatching.
	RunDailyScan(ctx context.Context, cfg model.BillingConfig, notifier adapter.Notifier) (*ScanReport, error)
	// RunScan is the manual entry point; its lock is released on return.
	RunScan(ctx context.Context, cfg model.BillingConfig, notifier adapter.Notifier) (*ScanReport, error)
}

type reminderUC struct {
	scan    ScanUseCase
	locker  repository.Locker
	lockTTL time.Duration
	pool    *worker.Pool
	tr      *i18n.Translator
	log     *zerolog.Logger
	now     func() time.Time
}

// NewReminderUseCase wires the dispatcher. locker and pool may be nil: no
// locking and inline sequential delivery respectively.
func NewReminderUseCase(
	scan ScanUseCase,
	locker repository.Locker,
	lockTTL time.Duration,
	pool *worker.Pool,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *reminderUC {
	return &reminderUC{
		scan:    scan,
		locker:  locker,
		lockTTL: lockTTL,
		pool:    pool,
		tr:      tr,
		log:     logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests and the CLI.
func (u *reminderUC) WithClock(now func() time.Time) *reminderUC {
	u.now = now
	return u
}

func (u *reminderUC) RunDailyScan(ctx context.Context, cfg model.BillingConfig, notifier adapter.Notifier) (*ScanReport, error) {
	defer logging.TraceDuration(u.log, "ReminderUC.RunDailyScan")()

	now := u.now()
	key := dailyLockPrefix + now.In(cfg.Location()).Format(time.DateOnly)
	var token string
	if u.locker != nil {
		var err error
		if token, err = u.locker.TryLock(ctx, key, u.lockTTL); err != nil {
			return u.lockFailed(err, now)
		}
	}
	report, err := u.run(ctx, cfg, notifier, now)
	if err != nil && u.locker != nil {
		// Nothing was sent; let a retry or the scan command claim the day.
		if uerr := u.locker.Unlock(context.Background(), key, token); uerr != nil {
			u.log.Warn().Err(uerr).Str("key", key).Msg("failed to release daily scan lock")
		}
	}
	return report, err
}

func (u *reminderUC) RunScan(ctx context.Context, cfg model.BillingConfig, notifier adapter.Notifier) (*ScanReport, error) {
	defer logging.TraceDuration(u.log, "ReminderUC.RunScan")()

	now := u.now()
	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, manualLockKey, u.lockTTL)
		if err != nil {
			return u.lockFailed(err, now)
		}
		defer func() {
			if err := u.locker.Unlock(context.Background(), manualLockKey, token); err != nil {
				u.log.Warn().Err(err).Msg("failed to release manual scan lock")
			}
		}()
	}
	return u.run(ctx, cfg, notifier, now)
}

func (u *reminderUC) lockFailed(err error, now time.Time) (*ScanReport, error) {
	if errors.Is(err, domain.ErrLockHeld) {
		metrics.IncScanRun("locked")
		u.log.Info().Msg("reminder pass skipped; lock held elsewhere")
		return &ScanReport{Date: now, Skipped: true}, nil
	}
	metrics.IncScanRun("failed")
	return nil, fmt.Errorf("acquire scan lock: %w", err)
}

func (u *reminderUC) run(ctx context.Context, cfg model.BillingConfig, notifier adapter.Notifier, now time.Time) (*ScanReport, error) {
	if notifier == nil {
		return nil, fmt.Errorf("%w: nil notifier", domain.ErrInvalidArgument)
	}
	start := time.Now()
	runID := ulid.Make().String()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.With(ctx, u.log)

	scan, err := u.scan.DueUsers(ctx, cfg, now)
	if err != nil {
		metrics.IncScanRun("failed")
		log.Error().Err(err).Msg("due-user scan failed")
		return nil, err
	}

	report := &ScanReport{
		RunID:    runID,
		Date:     scan.Today,
		Scanned:  scan.Scanned,
		Muted:    scan.Muted,
		Due:      scan.Due,
		Failures: scan.Failures,
	}
	report.Results = u.dispatch(ctx, cfg, notifier, scan.Due, log)

	metrics.IncScanRun("ok")
	metrics.ObserveScanDuration(time.Since(start).Seconds())
	metrics.SetScanUsers(report.Scanned, report.Muted, len(report.Due), len(report.Failures))
	log.Info().
		Str("date", report.Date.Format(time.DateOnly)).
		Int("scanned", report.Scanned).
		Int("muted", report.Muted).
		Int("due", len(report.Due)).
		Int("sent", report.Sent()).
		Int("failed", report.Failed()).
		Int("scan_failures", len(report.Failures)).
		Msg("reminder pass finished")
	return report, nil
}

// dispatch delivers one reminder per due user. Each delivery is isolated: a
// failure is recorded in its slot and never affects the others.
func (u *reminderUC) dispatch(ctx context.Context, cfg model.BillingConfig, notifier adapter.Notifier, due []DueUser, log *zerolog.Logger) []DispatchResult {
	results := make([]DispatchResult, len(due))
	amount := model.FormatMoney(cfg.MonthlyAmount)

	send := func(i int) {
		d := due[i]
		res := DispatchResult{UserID: d.User.ID}
		text := u.tr.T("reminder_due", amount, d.Coverage.NextDue.Format(time.DateOnly))

		sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
		err := notifier.Notify(sendCtx, d.User.ID, text)
		cancel()
		if err != nil {
			res.Err = err
			metrics.IncReminder("failed")
			log.Warn().Err(err).Int64("tg_id", d.User.ID).Msg("failed to deliver reminder")
		} else {
			res.Delivered = true
			metrics.IncReminder("sent")
		}
		results[i] = res
	}

	if u.pool == nil {
		for i := range due {
			send(i)
		}
		return results
	}

	var wg sync.WaitGroup
	for i := range due {
		wg.Add(1)
		err := u.pool.Submit(ctx, func(context.Context) error {
			defer wg.Done()
			send(i)
			return nil
		})
		if err != nil {
			wg.Done()
			results[i] = DispatchResult{UserID: due[i].User.ID, Err: err}
			metrics.IncReminder("failed")
			log.Warn().Err(err).Int64("tg_id", due[i].User.ID).Msg("failed to queue reminder")
		}
	}
	wg.Wait()
	return results
}
