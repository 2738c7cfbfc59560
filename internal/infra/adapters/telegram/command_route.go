package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/infra/logging"
	"billing-reminder-bot/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// textHandler matches the facade's admin methods: command arguments in, reply text out.
type textHandler func(ctx context.Context, args string) (string, error)

// commandRoutes maps command names (without the slash) to handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	f := r.facade
	return map[string]commandHandler{
		"start":   r.handleStartCommand,
		"help":    r.handleHelpCommand,
		"pay":     r.handlePayCommand,
		"cancel":  r.handleCancelCommand,
		"status":  r.handleStatusCommand,
		"history": r.handleHistoryCommand,

		"setday":     r.adminOnly(r.replyWith(f.HandleSetDay)),
		"setamount":  r.adminOnly(r.replyWith(f.HandleSetAmount)),
		"settz":      r.adminOnly(r.replyWith(f.HandleSetTimezone)),
		"mute":       r.adminOnly(r.replyWith(f.HandleMute)),
		"unmute":     r.adminOnly(r.replyWith(f.HandleUnmute)),
		"delpayment": r.adminOnly(r.replyWith(f.HandleDeletePayment)),
		"due": r.adminOnly(r.replyWith(func(ctx context.Context, _ string) (string, error) {
			return f.HandleDue(ctx)
		})),
		"remindnow": r.adminOnly(r.replyWith(func(ctx context.Context, _ string) (string, error) {
			return f.HandleRemindNow(ctx)
		})),
	}
}

func (r *RealTelegramBotAdapter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if !r.isAdmin(message.From.ID) {
			metrics.IncAdminCommand("/"+message.Command(), "unauthorized")
			return r.SendMessage(ctx, message.Chat.ID, r.translator.T("admin_only"))
		}
		metrics.IncAdminCommand("/"+message.Command(), "authorized")
		return next(ctx, message)
	}
}

// replyWith runs fn on the command arguments and sends its text back.
func (r *RealTelegramBotAdapter) replyWith(fn textHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		text, err := fn(ctx, message.CommandArguments())
		if err != nil {
			logging.With(ctx, r.log).Error().Err(err).Str("command", message.Command()).Msg("command failed")
		}
		return r.SendMessage(ctx, message.Chat.ID, text)
	}
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	from := message.From
	isAdmin := r.isAdmin(from.ID)
	text, err := r.facade.HandleStart(ctx, from.ID, from.UserName, from.FirstName, from.LastName, isAdmin)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", from.ID).Msg("start failed")
		return r.SendMessage(ctx, message.Chat.ID, text)
	}
	if err := r.SetMenuCommands(ctx, message.Chat.ID, isAdmin); err != nil {
		r.log.Warn().Err(err).Int64("tg_id", from.ID).Msg("failed to set menu commands")
	}
	return r.sendMainMenu(ctx, message.Chat.ID, text)
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.SendMessage(ctx, message.Chat.ID, r.facade.HandleHelp(r.isAdmin(message.From.ID)))
}

func (r *RealTelegramBotAdapter) handlePayCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendPayPrompt(ctx, message.From.ID, message.Chat.ID, message.CommandArguments())
}

func (r *RealTelegramBotAdapter) handleCancelCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.cancelCBRoute(ctx, message.From.ID, message.Chat.ID, "")
}

func (r *RealTelegramBotAdapter) handleStatusCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendStatus(ctx, message.From.ID, message.Chat.ID)
}

func (r *RealTelegramBotAdapter) handleHistoryCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendHistory(ctx, message.From.ID, message.Chat.ID)
}

// sendMainMenu shows the everyday actions as inline buttons.
func (r *RealTelegramBotAdapter) sendMainMenu(ctx context.Context, chatID int64, intro string) error {
	rows := [][]adapter.InlineButton{
		{{Text: r.translator.T("button_pay"), Data: "pay:1"}},
		{{Text: r.translator.T("button_status"), Data: "cmd:status"}, {Text: r.translator.T("button_history"), Data: "cmd:history"}},
	}
	return r.SendButtons(ctx, chatID, intro, rows)
}

// sendPayPrompt stages the payment and offers other month counts plus cancel.
func (r *RealTelegramBotAdapter) sendPayPrompt(ctx context.Context, tgID, chatID int64, months string) error {
	text, err := r.facade.HandlePay(ctx, tgID, months)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", tgID).Msg("begin payment failed")
		return r.SendMessage(ctx, chatID, text)
	}
	rows := [][]adapter.InlineButton{
		{
			{Text: r.translator.T("button_months", 1), Data: "pay:1"},
			{Text: r.translator.T("button_months", 3), Data: "pay:3"},
			{Text: r.translator.T("button_months", 6), Data: "pay:6"},
			{Text: r.translator.T("button_months", 12), Data: "pay:12"},
		},
		{{Text: r.translator.T("button_cancel"), Data: "pay:cancel"}},
	}
	return r.SendButtons(ctx, chatID, text, rows)
}

func (r *RealTelegramBotAdapter) sendStatus(ctx context.Context, tgID, chatID int64) error {
	text, err := r.facade.HandleStatus(ctx, tgID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", tgID).Msg("status failed")
		return r.SendMessage(ctx, chatID, text)
	}
	return r.sendMainMenu(ctx, chatID, text)
}

func (r *RealTelegramBotAdapter) sendHistory(ctx context.Context, tgID, chatID int64) error {
	text, err := r.facade.HandleHistory(ctx, tgID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", tgID).Msg("history failed")
	}
	return r.SendMessage(ctx, chatID, text)
}
