package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"billing-reminder-bot/internal/application"
	"billing-reminder-bot/internal/domain/ports/adapter"
	tele "billing-reminder-bot/internal/infra/adapters/telegram"
	pg "billing-reminder-bot/internal/infra/db/postgres"
	"billing-reminder-bot/internal/infra/logging"
	"billing-reminder-bot/internal/infra/metrics"
	red "billing-reminder-bot/internal/infra/redis"
	"billing-reminder-bot/internal/infra/sched"
	"billing-reminder-bot/internal/infra/web"
	"billing-reminder-bot/internal/infra/worker"
	"billing-reminder-bot/internal/usecase"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the daily reminder scheduler and the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, log := a.cfg, a.log
	if cfg.Runtime.Dev {
		log.Warn().Msg("developer mode enabled")
	}
	metrics.SetBuildInfo(version, commit, cfg.Database.Driver)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	users := red.NewUserRepoCacheDecorator(a.users, redisClient, cfg.Redis.TTL, logging.Component(log, "UserCache"))
	intents := red.NewIntentRepo(redisClient, cfg.Redis.IntentTTL)
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Use cases ----
	settingsUC, err := a.initSettings(ctx)
	if err != nil {
		return err
	}
	userUC := usecase.NewUserUseCase(users, a.tm, logging.Component(log, "UserUC"))
	scanUC := usecase.NewScanUseCase(users, a.payments, logging.Component(log, "ScanUC"))

	pool := worker.NewPool(cfg.Scheduler.DispatchWorker, logging.Component(log, "DispatchPool"))
	pool.Start(ctx)
	defer pool.Stop()
	reminderUC := usecase.NewReminderUseCase(scanUC, locker, cfg.Scheduler.LockTTL, pool, a.tr, logging.Component(log, "ReminderUC"))

	// ---- Telegram ----
	var (
		sink   adapter.Notifier
		poller *tele.RealTelegramBotAdapter
	)
	if cfg.Bot.Mode == "noop" {
		log.Warn().Msg("bot.mode=noop: messages are logged, not sent")
		sink = tele.NewNoopBotAdapter(log)
	} else {
		poller, err = tele.NewRealTelegramBotAdapter(cfg.Bot, a.tr, rateLimiter, log)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		sink = poller
	}

	payUC := usecase.NewPaymentUseCase(a.payments, intents, users, a.tm, settingsUC, sink, cfg.Bot.AdminIDs, a.tr, logging.Component(log, "PaymentUC"))
	facade := application.NewBotFacade(userUC, payUC, scanUC, settingsUC, reminderUC, a.tr, log)

	errc := make(chan error, 3)
	if poller != nil {
		poller.Bind(facade)
		go func() {
			if err := poller.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- fmt.Errorf("telegram polling: %w", err)
			}
		}()
	} else {
		facade.SetNotifier(sink)
	}

	// ---- Daily scheduler ----
	if cfg.Scheduler.Enabled {
		daily := sched.NewDailyScan(settingsUC, reminderUC, sink, log)
		go func() {
			if err := daily.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- fmt.Errorf("scheduler: %w", err)
			}
		}()
	} else {
		log.Info().Msg("scheduler disabled; run the scan command from an external cron")
	}

	// ---- Admin API ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	srv := web.NewServer(settingsUC, scanUC, reminderUC, sink, auth, log)
	go func() {
		if err := srv.Start(cfg.Admin.Port); err != nil {
			errc <- fmt.Errorf("admin api: %w", err)
		}
	}()

	if a.pgPool != nil {
		go pg.ReportPoolStats(ctx, a.pgPool, 15*time.Second, log)
	}

	started := log.Info().
		Str("version", version).
		Str("storage", cfg.Database.Driver).
		Str("bot_mode", cfg.Bot.Mode).
		Str("locale", a.tr.Lang()).
		Int("dispatch_workers", pool.Size())
	if n, err := userUC.Count(ctx); err == nil {
		started = started.Int("users", n)
	}
	started.Msg("service started")

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case runErr = <-errc:
		log.Error().Err(runErr).Msg("component failed; shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("admin api shutdown")
	}
	if poller != nil {
		poller.StopPolling()
	}
	return runErr
}
