package usecase

import (
	"context"
	"fmt"
	"time"

	"billing-reminder-bot/internal/domain/billing"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
	"billing-reminder-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ScanUseCase = (*scanUC)(nil)

// DueUser is a user owed a reminder together with the coverage that made them due.
type DueUser struct {
	User     *model.User
	Coverage billing.Coverage
}

// ScanFailure records a user whose coverage could not be computed.
type ScanFailure struct {
	UserID int64
	Err    error
}

type ScanResult struct {
	Today    time.Time
	Scanned  int
	Muted    int
	Due      []DueUser // input user order
	Failures []ScanFailure
}

// UserCoverage is the status view of a single user.
type UserCoverage struct {
	User     *model.User
	Today    time.Time
	Coverage billing.Coverage
	Muted    bool
}

type ScanUseCase interface {
	// DueUsers classifies every user for the local date of now in cfg's timezone.
	DueUsers(ctx context.Context, cfg model.BillingConfig, now time.Time) (*ScanResult, error)
	Coverage(ctx context.Context, userID int64, cfg model.BillingConfig, now time.Time) (*UserCoverage, error)
}

type scanUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	log      *zerolog.Logger
}

func NewScanUseCase(users repository.UserRepository, payments repository.PaymentRepository, logger *zerolog.Logger) *scanUC {
	return &scanUC{users: users, payments: payments, log: logger}
}

func (u *scanUC) DueUsers(ctx context.Context, cfg model.BillingConfig, now time.Time) (*ScanResult, error) {
	defer logging.TraceDuration(u.log, "ScanUC.DueUsers")()

	params := billing.ParamsFrom(cfg)
	today := billing.LocalDate(now, params.Location)

	all, err := u.users.ListAll(ctx, repository.NoTX)
	unreadable, partial := repository.AsUnreadableRows(err)
	if err != nil && !partial {
		return nil, fmt.Errorf("list users: %w", err)
	}

	res := &ScanResult{Today: today, Scanned: len(all)}
	if partial {
		res.Scanned += len(unreadable.Rows)
		for _, row := range unreadable.Rows {
			u.log.Warn().Err(row.Err).Int64("tg_id", row.ID).Msg("user row unreadable; user skipped")
			res.Failures = append(res.Failures, ScanFailure{UserID: row.ID, Err: row.Err})
		}
	}
	for _, usr := range all {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if usr.MutedOn(today) {
			res.Muted++
			continue
		}
		cov, err := u.coverageOf(ctx, usr.ID, params, today)
		if err != nil {
			u.log.Warn().Err(err).Int64("tg_id", usr.ID).Msg("coverage computation failed; user skipped")
			res.Failures = append(res.Failures, ScanFailure{UserID: usr.ID, Err: err})
			continue
		}
		if cov.IsDue(today) {
			res.Due = append(res.Due, DueUser{User: usr, Coverage: cov})
		}
	}
	return res, nil
}

func (u *scanUC) Coverage(ctx context.Context, userID int64, cfg model.BillingConfig, now time.Time) (*UserCoverage, error) {
	defer logging.TraceDuration(u.log, "ScanUC.Coverage")()

	usr, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	params := billing.ParamsFrom(cfg)
	today := billing.LocalDate(now, params.Location)
	cov, err := u.coverageOf(ctx, userID, params, today)
	if err != nil {
		return nil, err
	}
	return &UserCoverage{User: usr, Today: today, Coverage: cov, Muted: usr.MutedOn(today)}, nil
}

func (u *scanUC) coverageOf(ctx context.Context, userID int64, p billing.Params, today time.Time) (billing.Coverage, error) {
	payments, err := u.payments.ListByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return billing.Coverage{}, fmt.Errorf("list payments: %w", err)
	}
	return billing.Compute(payments, p, today)
}
