package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"billing-reminder-bot/internal/config"
	"billing-reminder-bot/internal/domain/ports/repository"
	pg "billing-reminder-bot/internal/infra/db/postgres"
	"billing-reminder-bot/internal/infra/db/sqlite"
	"billing-reminder-bot/internal/infra/i18n"
	"billing-reminder-bot/internal/infra/logging"
	"billing-reminder-bot/internal/usecase"
)

// requiredKeys are the messages sent without a user in the loop.
var requiredKeys = []string{"reminder_due", "admin_new_payment", "internal_error"}

// app holds what every subcommand needs: config, logger, translator and storage.
type app struct {
	cfg *config.Config
	log *zerolog.Logger
	tr  *i18n.Translator

	users    repository.UserRepository
	payments repository.PaymentRepository
	settings repository.SettingsRepository
	tm       repository.TransactionManager
	pgPool   *pgxpool.Pool

	closers []func()
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadConfig(opts.cfgPath, opts.dev)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logging.New(cfg.Log, cfg.Runtime.Dev)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Locale)
	if err != nil {
		return nil, fmt.Errorf("i18n: %w", err)
	}

	for _, key := range requiredKeys {
		if !tr.Has(key) {
			return nil, fmt.Errorf("i18n: locale %q lacks %q", tr.Lang(), key)
		}
	}

	a := &app{cfg: cfg, log: log, tr: tr}
	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	switch a.cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, a.cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.users = sqlite.NewUserRepo(db)
		a.payments = sqlite.NewPaymentRepo(db)
		a.settings = sqlite.NewSettingsRepo(db)
		a.tm = sqlite.NewTxManager(db)
		a.log.Info().Str("path", a.cfg.Database.Path).Msg("storage: sqlite")
	default:
		pool, err := pg.Connect(ctx, a.cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.pgPool = pool
		a.users = pg.NewUserRepo(pool)
		a.payments = pg.NewPaymentRepo(pool)
		a.settings = pg.NewSettingsRepo(pool)
		a.tm = pg.NewTxManager(pool)
		a.log.Info().Str("dsn", logging.Redact(a.cfg.Database.URL, a.cfg.Runtime.Dev)).Msg("storage: postgres")
	}
	return nil
}

// initSettings loads the persisted billing settings, seeding them from the
// config file on first run.
func (a *app) initSettings(ctx context.Context) (usecase.SettingsUseCase, error) {
	settingsUC := usecase.NewSettingsUseCase(a.settings, a.cfg.Billing, logging.Component(a.log, "SettingsUC"))
	if _, err := settingsUC.Init(ctx); err != nil {
		return nil, fmt.Errorf("billing settings: %w", err)
	}
	return settingsUC, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
