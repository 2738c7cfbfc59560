package telegram

import "context"

// cbHandler receives the callback data with any route prefix stripped.
type cbHandler func(ctx context.Context, tgID, chatID int64, data string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Exact-match callbacks
func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"cmd:status":  r.statusCBRoute,
		"cmd:history": r.historyCBRoute,
		"pay:cancel":  r.cancelCBRoute,
	}
}

// Prefix-match callbacks, checked after exact matches.
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: "pay:", Fn: r.payPrefixCBRoute},
	}
}

func (r *RealTelegramBotAdapter) statusCBRoute(ctx context.Context, tgID, chatID int64, _ string) error {
	return r.sendStatus(ctx, tgID, chatID)
}

func (r *RealTelegramBotAdapter) historyCBRoute(ctx context.Context, tgID, chatID int64, _ string) error {
	return r.sendHistory(ctx, tgID, chatID)
}

func (r *RealTelegramBotAdapter) cancelCBRoute(ctx context.Context, tgID, chatID int64, _ string) error {
	text, err := r.facade.HandleCancel(ctx, tgID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", tgID).Msg("cancel payment failed")
	}
	return r.SendMessage(ctx, chatID, text)
}

func (r *RealTelegramBotAdapter) payPrefixCBRoute(ctx context.Context, tgID, chatID int64, months string) error {
	return r.sendPayPrompt(ctx, tgID, chatID, months)
}
