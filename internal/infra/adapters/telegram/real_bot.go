package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"billing-reminder-bot/internal/application"
	"billing-reminder-bot/internal/config"
	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/infra/i18n"
	"billing-reminder-bot/internal/infra/logging"
	"billing-reminder-bot/internal/infra/metrics"
	red "billing-reminder-bot/internal/infra/redis"
)

var (
	_ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)
	_ adapter.Notifier           = (*RealTelegramBotAdapter)(nil)
)

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RealTelegramBotAdapter polls updates with tgbotapi and delegates to BotFacade.
// It is also the reminder and admin notification sink.
type RealTelegramBotAdapter struct {
	bot         botAPI
	cfg         config.BotConfig
	facade      *application.BotFacade
	translator  *i18n.Translator
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger

	adminIDsMap   map[int64]struct{}
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg config.BotConfig, tr *i18n.Translator, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg.Token == "" {
		return nil, errors.New("bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return newAdapter(bot, cfg, tr, rateLimiter, logger), nil
}

func newAdapter(bot botAPI, cfg config.BotConfig, tr *i18n.Translator, rateLimiter *red.RateLimiter, logger *zerolog.Logger) *RealTelegramBotAdapter {
	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	l := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		translator:    tr,
		rateLimiter:   rateLimiter,
		log:           &l,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
	}
}

// Bind attaches the facade. The facade's payment use case notifies admins
// through this adapter, so the two are constructed in two steps.
func (r *RealTelegramBotAdapter) Bind(facade *application.BotFacade) {
	r.facade = facade
	facade.SetNotifier(r)
}

func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("bot facade is not bound")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for up := range updateChan {
				if err := r.handleUpdate(ctx, up); err != nil {
					r.log.Error().Err(err).Int("worker", id).Int("update_id", up.UpdateID).Msg("update handling failed")
				}
			}
		}(i)
	}

	r.log.Info().Int("workers", r.updateWorkers).Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				close(updateChan)
				wg.Wait()
				return nil
			}
			updateChan <- up
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.bot.Send(tgbotapi.NewMessage(tgID, text))
	return err
}

// SendButtons sends a message with an inline keyboard. A button opens its URL
// when set, otherwise it sends Data (or its label) as callback data.
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(tgID, text)
	if kb := inlineKeyboard(rows); len(kb.InlineKeyboard) > 0 {
		msg.ReplyMarkup = kb
	}
	_, err := r.bot.Send(msg)
	return err
}

// Notify delivers a reminder or admin notice as a plain message.
func (r *RealTelegramBotAdapter) Notify(ctx context.Context, userID int64, text string) error {
	return r.SendMessage(ctx, userID, text)
}

func inlineKeyboard(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				out = append(out, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				out = append(out, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				out = append(out, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, out)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: kbRows}
}

// SetMenuCommands scopes the command menu to the chat; admins see admin commands too.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context, chatID int64, isAdmin bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmds := []tgbotapi.BotCommand{
		{Command: "pay", Description: "Submit a payment"},
		{Command: "status", Description: "Show your coverage"},
		{Command: "history", Description: "Your last payments"},
		{Command: "cancel", Description: "Cancel the pending payment"},
		{Command: "help", Description: "List commands"},
	}
	if isAdmin {
		cmds = append(cmds,
			tgbotapi.BotCommand{Command: "due", Description: "Users due today"},
			tgbotapi.BotCommand{Command: "remindnow", Description: "Run the reminder pass"},
		)
	}
	_, err := r.bot.Request(tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(chatID), cmds...))
	return err
}

func (r *RealTelegramBotAdapter) isAdmin(tgID int64) bool {
	_, ok := r.adminIDsMap[tgID]
	return ok
}

// allow applies the per-user fixed-window limit. Limiter errors fail open.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, tgID int64, command string) bool {
	if r.rateLimiter == nil {
		return true
	}
	ok, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, command), r.cfg.RateLimit, r.cfg.RateWindow)
	if err != nil {
		r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		metrics.IncRateLimitTriggered()
	}
	return ok
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return nil
	}

	ctx = logging.WithTgID(ctx, message.From.ID)

	command := "message"
	if message.IsCommand() {
		command = "/" + message.Command()
	}
	if !r.allow(ctx, message.From.ID, command) {
		return r.SendMessage(ctx, message.Chat.ID, r.translator.T("rate_limited"))
	}

	if message.IsCommand() {
		metrics.IncTelegramCommand(command)
		if fn, ok := r.commandRoutes()[message.Command()]; ok {
			return fn(ctx, message)
		}
		return r.SendMessage(ctx, message.Chat.ID, r.translator.T("unknown_command"))
	}

	if fileID := proofFileID(message); fileID != "" {
		text, err := r.facade.HandleProof(ctx, message.From.ID, fileID)
		if err != nil {
			logging.With(ctx, r.log).Error().Err(err).Msg("attach proof failed")
		}
		return r.SendMessage(ctx, message.Chat.ID, text)
	}
	return r.SendMessage(ctx, message.Chat.ID, r.translator.T("unknown_command"))
}

// proofFileID returns the Telegram file id of a photo (largest size) or document.
func proofFileID(m *tgbotapi.Message) string {
	if n := len(m.Photo); n > 0 {
		return m.Photo[n-1].FileID
	}
	if m.Document != nil {
		return m.Document.FileID
	}
	return ""
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop telegram spinner when we return
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	data := strings.TrimSpace(query.Data)

	if !r.allow(ctx, query.From.ID, "cb:"+data) {
		return r.SendMessage(ctx, chatID, r.translator.T("rate_limited"))
	}

	if fn, ok := r.cbRoutes()[data]; ok {
		return fn(ctx, query.From.ID, chatID, data)
	}
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, query.From.ID, chatID, strings.TrimPrefix(data, pr.Prefix))
		}
	}
	return errors.New("unknown callback data: " + data)
}
