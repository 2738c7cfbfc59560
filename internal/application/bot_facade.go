package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/billing"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/infra/i18n"
	"billing-reminder-bot/internal/usecase"
)

// BotFacade composes use cases into bot commands. Methods return the text to
// send back; a non-nil error is for logging only, the text is always sendable.
type BotFacade struct {
	UserUC     usecase.UserUseCase
	PayUC      usecase.PaymentUseCase
	ScanUC     usecase.ScanUseCase
	SettingsUC usecase.SettingsUseCase
	ReminderUC usecase.ReminderUseCase

	notifier adapter.Notifier
	tr       *i18n.Translator
	log      *zerolog.Logger
	now      func() time.Time
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	payUC usecase.PaymentUseCase,
	scanUC usecase.ScanUseCase,
	settingsUC usecase.SettingsUseCase,
	reminderUC usecase.ReminderUseCase,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *BotFacade {
	l := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{
		UserUC:     userUC,
		PayUC:      payUC,
		ScanUC:     scanUC,
		SettingsUC: settingsUC,
		ReminderUC: reminderUC,
		tr:         tr,
		log:        &l,
		now:        time.Now,
	}
}

// SetNotifier sets the sink used by /remindnow. The bot adapter registers itself.
func (b *BotFacade) SetNotifier(n adapter.Notifier) { b.notifier = n }

// WithClock replaces the time source.
func (b *BotFacade) WithClock(now func() time.Time) *BotFacade {
	b.now = now
	return b
}

func (b *BotFacade) internal(err error) (string, error) {
	return b.tr.T("internal_error"), err
}

func fmtDate(t time.Time) string { return t.Format(time.DateOnly) }

// ===== user commands =====

func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, handle, firstName, lastName string, isAdmin bool) (string, error) {
	u, created, err := b.UserUC.RegisterOrUpdate(ctx, tgID, handle, firstName, lastName)
	if err != nil {
		return b.internal(fmt.Errorf("register user: %w", err))
	}
	if created {
		b.log.Info().Int64("tg_id", tgID).Msg("new user registered")
	}
	return b.tr.T("start_welcome", u.DisplayName()) + "\n\n" + b.HandleHelp(isAdmin), nil
}

func (b *BotFacade) HandleHelp(isAdmin bool) string {
	if isAdmin {
		return b.tr.T("help") + "\n\n" + b.tr.T("help_admin")
	}
	return b.tr.T("help")
}

// HandlePay stages a payment; args is the optional month count.
func (b *BotFacade) HandlePay(ctx context.Context, tgID int64, args string) (string, error) {
	months := 1
	if s := strings.TrimSpace(args); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > usecase.MaxMonthsPerPayment {
			return b.tr.T("pay_bad_months"), nil
		}
		months = n
	}
	intent, err := b.PayUC.BeginPayment(ctx, tgID, months)
	if errors.Is(err, domain.ErrInvalidArgument) {
		return b.tr.T("pay_bad_months"), nil
	}
	if err != nil {
		return b.internal(err)
	}
	return b.tr.T("pay_prompt", intent.Months, model.FormatMoney(intent.Amount)), nil
}

// HandleProof records a payment for the uploaded file id.
func (b *BotFacade) HandleProof(ctx context.Context, tgID int64, fileID string) (string, error) {
	p, err := b.PayUC.AttachProof(ctx, tgID, fileID, b.now())
	if err != nil {
		return b.tr.T("proof_failed"), err
	}
	return b.tr.T("proof_saved", p.Months, model.FormatMoney(p.Amount)), nil
}

func (b *BotFacade) HandleCancel(ctx context.Context, tgID int64) (string, error) {
	ok, err := b.PayUC.CancelPayment(ctx, tgID)
	if err != nil {
		return b.internal(err)
	}
	if !ok {
		return b.tr.T("cancel_none"), nil
	}
	return b.tr.T("cancel_done"), nil
}

func (b *BotFacade) HandleStatus(ctx context.Context, tgID int64) (string, error) {
	cfg := b.SettingsUC.Current()
	cov, err := b.ScanUC.Coverage(ctx, tgID, cfg, b.now())
	if errors.Is(err, domain.ErrNotFound) {
		return b.tr.T("user_not_found", strconv.FormatInt(tgID, 10)), nil
	}
	if err != nil {
		return b.internal(err)
	}
	return b.statusText(cov, cfg), nil
}

func (b *BotFacade) statusText(cov *usecase.UserCoverage, cfg model.BillingConfig) string {
	amount := model.FormatMoney(cfg.MonthlyAmount)
	next := fmtDate(cov.Coverage.NextDue)

	var text string
	switch {
	case cov.Coverage.IsDue(cov.Today):
		text = b.tr.T("status_overdue", next, amount)
	case cov.Coverage.CoveredThrough == nil:
		text = b.tr.T("status_uncovered", next, amount)
	default:
		text = b.tr.T("status_covered", fmtDate(*cov.Coverage.CoveredThrough), next, amount)
	}
	if cov.Muted && cov.User.MutedUntil != nil {
		text += "\n" + b.tr.T("status_muted", fmtDate(*cov.User.MutedUntil))
	}
	return text
}

func (b *BotFacade) HandleHistory(ctx context.Context, tgID int64) (string, error) {
	items, err := b.PayUC.History(ctx, tgID, usecase.DefaultHistoryLimit)
	if err != nil {
		return b.internal(err)
	}
	if len(items) == 0 {
		return b.tr.T("history_empty"), nil
	}
	loc := b.SettingsUC.Current().Location()
	var sb strings.Builder
	sb.WriteString(b.tr.T("history_header"))
	for _, p := range items {
		sb.WriteString("\n")
		sb.WriteString(b.tr.T("history_line", fmtDate(billing.LocalDate(p.PaidAt, loc)), model.FormatMoney(p.Amount), p.Months, shortID(p.ID)))
	}
	return sb.String(), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ===== admin commands =====

func (b *BotFacade) update(ctx context.Context, patch model.BillingPatch, raw string) (model.BillingConfig, string, error) {
	cfg, err := b.SettingsUC.Update(ctx, patch)
	switch {
	case err == nil:
		return cfg, "", nil
	case errors.Is(err, domain.ErrInvalidBillingDay),
		errors.Is(err, domain.ErrInvalidTimezone),
		errors.Is(err, domain.ErrInvalidReminderTime),
		errors.Is(err, domain.ErrInvalidArgument):
		return cfg, b.tr.T("setting_invalid", raw), nil
	default:
		text, err := b.internal(err)
		return cfg, text, err
	}
}

func (b *BotFacade) HandleSetDay(ctx context.Context, args string) (string, error) {
	raw := strings.TrimSpace(args)
	if raw == "" {
		return b.tr.T("usage", "/setday <1-28>"), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return b.tr.T("setting_invalid", raw), nil
	}
	cfg, text, err := b.update(ctx, model.BillingPatch{BillingDay: &n}, raw)
	if text != "" {
		return text, err
	}
	return b.tr.T("setday_done", cfg.BillingDay), nil
}

func (b *BotFacade) HandleSetAmount(ctx context.Context, args string) (string, error) {
	raw := strings.TrimSpace(args)
	if raw == "" {
		return b.tr.T("usage", "/setamount <amount>"), nil
	}
	minor, err := model.ParseMoney(raw)
	if err != nil {
		return b.tr.T("setting_invalid", raw), nil
	}
	cfg, text, err := b.update(ctx, model.BillingPatch{MonthlyAmount: &minor}, raw)
	if text != "" {
		return text, err
	}
	return b.tr.T("setamount_done", model.FormatMoney(cfg.MonthlyAmount)), nil
}

func (b *BotFacade) HandleSetTimezone(ctx context.Context, args string) (string, error) {
	raw := strings.TrimSpace(args)
	if raw == "" {
		return b.tr.T("usage", "/settz <IANA zone>"), nil
	}
	cfg, text, err := b.update(ctx, model.BillingPatch{Timezone: &raw}, raw)
	if text != "" {
		return text, err
	}
	return b.tr.T("settz_done", cfg.Timezone), nil
}

// HandleMute expects "<user> <YYYY-MM-DD>".
func (b *BotFacade) HandleMute(ctx context.Context, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return b.tr.T("usage", "/mute <user> <YYYY-MM-DD>"), nil
	}
	until, err := time.Parse(time.DateOnly, fields[1])
	if err != nil {
		return b.tr.T("setting_invalid", fields[1]), nil
	}
	u, text, err := b.resolveUser(ctx, fields[0])
	if u == nil {
		return text, err
	}
	if err := b.UserUC.Mute(ctx, u.ID, until); err != nil {
		return b.internal(err)
	}
	return b.tr.T("mute_done", u.DisplayName(), fmtDate(until)), nil
}

func (b *BotFacade) HandleUnmute(ctx context.Context, args string) (string, error) {
	ref := strings.TrimSpace(args)
	if ref == "" {
		return b.tr.T("usage", "/unmute <user>"), nil
	}
	u, text, err := b.resolveUser(ctx, ref)
	if u == nil {
		return text, err
	}
	if err := b.UserUC.Unmute(ctx, u.ID); err != nil {
		return b.internal(err)
	}
	return b.tr.T("unmute_done", u.DisplayName()), nil
}

func (b *BotFacade) resolveUser(ctx context.Context, ref string) (*model.User, string, error) {
	u, err := b.UserUC.ParseUserRef(ctx, ref)
	switch {
	case err == nil:
		return u, "", nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidArgument):
		return nil, b.tr.T("user_not_found", ref), nil
	default:
		text, err := b.internal(err)
		return nil, text, err
	}
}

func (b *BotFacade) HandleDeletePayment(ctx context.Context, args string) (string, error) {
	id := strings.TrimSpace(args)
	if id == "" {
		return b.tr.T("usage", "/delpayment <id>"), nil
	}
	p, err := b.PayUC.DeletePayment(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
		return b.tr.T("delpayment_none", id), nil
	}
	if err != nil {
		// A malformed uuid is rejected by Postgres as a query error.
		return b.tr.T("delpayment_none", id), err
	}
	return b.tr.T("delpayment_done", p.ID), nil
}

// HandleDue lists the users a pass would remind right now, without sending.
func (b *BotFacade) HandleDue(ctx context.Context) (string, error) {
	res, err := b.ScanUC.DueUsers(ctx, b.SettingsUC.Current(), b.now())
	if err != nil {
		return b.internal(err)
	}
	if len(res.Due) == 0 {
		return b.tr.T("due_none"), nil
	}
	var sb strings.Builder
	sb.WriteString(b.tr.T("due_header", len(res.Due)))
	for _, d := range res.Due {
		sb.WriteString("\n")
		sb.WriteString(b.tr.T("due_line", d.User.DisplayName(), fmtDate(d.Coverage.NextDue)))
	}
	return sb.String(), nil
}

// HandleRemindNow runs a manual reminder pass with the current settings.
func (b *BotFacade) HandleRemindNow(ctx context.Context) (string, error) {
	if b.notifier == nil {
		return b.internal(errors.New("no notifier registered"))
	}
	rep, err := b.ReminderUC.RunScan(ctx, b.SettingsUC.Current(), b.notifier)
	if err != nil {
		return b.internal(err)
	}
	if rep.Skipped {
		return b.tr.T("remind_locked"), nil
	}
	return b.tr.T("remind_report", rep.RunID, len(rep.Due), rep.Sent(), rep.Failed(), rep.Muted, len(rep.Failures)), nil
}
