package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"billing-reminder-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)
	_ adapter.Notifier           = (*NoopBotAdapter)(nil)
)

// NoopBotAdapter logs outgoing messages instead of sending them. Used with
// bot.mode=noop and by the one-shot scan command in dry runs.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBotAdapter{log: &l}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("tg_id", tgID).Str("text", text).Msg("noop send")
	return nil
}

func (b *NoopBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("tg_id", tgID).Str("text", text).Int("button_rows", len(rows)).Msg("noop send")
	return nil
}

func (b *NoopBotAdapter) Notify(ctx context.Context, userID int64, text string) error {
	return b.SendMessage(ctx, userID, text)
}
