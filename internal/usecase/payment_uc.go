// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/domain/ports/repository"
	"billing-reminder-bot/internal/infra/i18n"
	"billing-reminder-bot/internal/infra/logging"
	"billing-reminder-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const (
	DefaultHistoryLimit = 10
	MaxMonthsPerPayment = 24
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// BeginPayment stages a pending intent for months periods at the current monthly amount.
	BeginPayment(ctx context.Context, userID int64, months int) (*model.PendingIntent, error)
	// AttachProof consumes the pending intent (or assumes one month) and records the payment.
	AttachProof(ctx context.Context, userID int64, proofRef string, now time.Time) (*model.Payment, error)
	// CancelPayment drops the pending intent; false means there was none.
	CancelPayment(ctx context.Context, userID int64) (bool, error)
	History(ctx context.Context, userID int64, limit int) ([]*model.Payment, error)
	DeletePayment(ctx context.Context, id string) (*model.Payment, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	intents  repository.IntentRepository
	users    repository.UserRepository
	tm       repository.TransactionManager
	settings SettingsUseCase
	admins   adapter.Notifier
	adminIDs []int64
	tr       *i18n.Translator
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	intents repository.IntentRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	settings SettingsUseCase,
	admins adapter.Notifier,
	adminIDs []int64,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments: payments,
		intents:  intents,
		users:    users,
		tm:       tm,
		settings: settings,
		admins:   admins,
		adminIDs: adminIDs,
		tr:       tr,
		log:      logger,
	}
}

func (u *paymentUC) BeginPayment(ctx context.Context, userID int64, months int) (*model.PendingIntent, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.BeginPayment")()

	if userID <= 0 || months <= 0 || months > MaxMonthsPerPayment {
		return nil, domain.ErrInvalidArgument
	}
	cfg := u.settings.Current()
	intent := &model.PendingIntent{
		UserID:    userID,
		Amount:    cfg.MonthlyAmount * int64(months),
		Months:    months,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.intents.Set(ctx, intent); err != nil {
		return nil, err
	}
	metrics.IncPayment("intent")
	return intent, nil
}

func (u *paymentUC) AttachProof(ctx context.Context, userID int64, proofRef string, now time.Time) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.AttachProof")()

	if proofRef == "" {
		return nil, domain.ErrInvalidArgument
	}
	intent, err := u.intents.Take(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		intent = nil
	case err != nil:
		return nil, err
	}

	amount, months := u.settings.Current().MonthlyAmount, 1
	if intent != nil {
		amount, months = intent.Amount, intent.Months
	}

	p, err := model.NewPayment(userID, amount, months, proofRef, now)
	if err != nil {
		u.restoreIntent(ctx, intent)
		return nil, err
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		u.log.Error().Err(err).Int64("tg_id", userID).Msg("failed to save payment")
		metrics.IncPayment("failed")
		u.restoreIntent(ctx, intent)
		return nil, err
	}
	metrics.IncPayment("recorded")
	metrics.AddPaymentRevenue(p.Amount)
	u.log.Info().Int64("tg_id", userID).Str("payment_id", p.ID).Int("months", p.Months).Msg("payment recorded")

	u.notifyAdmins(ctx, p)
	return p, nil
}

func (u *paymentUC) restoreIntent(ctx context.Context, intent *model.PendingIntent) {
	if intent == nil {
		return
	}
	if err := u.intents.Set(ctx, intent); err != nil {
		u.log.Warn().Err(err).Int64("tg_id", intent.UserID).Msg("failed to restore pending intent")
	}
}

func (u *paymentUC) notifyAdmins(ctx context.Context, p *model.Payment) {
	if u.admins == nil || len(u.adminIDs) == 0 {
		return
	}
	who := fmt.Sprintf("%d", p.UserID)
	if usr, err := u.users.FindByID(ctx, repository.NoTX, p.UserID); err == nil && usr != nil {
		who = usr.DisplayName()
	}
	text := u.tr.T("admin_new_payment", who, model.FormatMoney(p.Amount), p.Months, p.ID)
	for _, id := range u.adminIDs {
		if err := u.admins.Notify(ctx, id, text); err != nil {
			u.log.Warn().Err(err).Int64("admin_id", id).Msg("failed to notify admin about payment")
		}
	}
}

func (u *paymentUC) CancelPayment(ctx context.Context, userID int64) (bool, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CancelPayment")()

	if _, err := u.intents.Get(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := u.intents.Clear(ctx, userID); err != nil {
		return false, err
	}
	metrics.IncPayment("cancelled")
	return true, nil
}

func (u *paymentUC) History(ctx context.Context, userID int64, limit int) ([]*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.History")()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return u.payments.ListRecentByUser(ctx, repository.NoTX, userID, limit)
}

func (u *paymentUC) DeletePayment(ctx context.Context, id string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.DeletePayment")()

	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	var deleted *model.Payment
	err := u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := u.payments.Delete(ctx, tx, id); err != nil {
			return err
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayment("deleted")
	u.log.Info().Str("payment_id", id).Int64("tg_id", deleted.UserID).Msg("payment deleted by admin")
	return deleted, nil
}
