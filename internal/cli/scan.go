package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"billing-reminder-bot/internal/domain/ports/adapter"
	tele "billing-reminder-bot/internal/infra/adapters/telegram"
	"billing-reminder-bot/internal/infra/logging"
	red "billing-reminder-bot/internal/infra/redis"
	"billing-reminder-bot/internal/infra/worker"
	"billing-reminder-bot/internal/usecase"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one daily reminder pass and exit",
		Long: `Runs the reminder pass once with the persisted billing settings. Meant for
an external cron when the in-process scheduler is disabled. The per-day lock
is shared with running servers, so a day is never reminded twice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			redisClient, err := red.NewClient(ctx, &a.cfg.Redis)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer redisClient.Close()

			settingsUC, err := a.initSettings(ctx)
			if err != nil {
				return err
			}

			var sink adapter.Notifier
			if dryRun || a.cfg.Bot.Mode == "noop" {
				sink = tele.NewNoopBotAdapter(a.log)
			} else {
				bot, err := tele.NewRealTelegramBotAdapter(a.cfg.Bot, a.tr, nil, a.log)
				if err != nil {
					return fmt.Errorf("telegram: %w", err)
				}
				sink = bot
			}

			pool := worker.NewPool(a.cfg.Scheduler.DispatchWorker, logging.Component(a.log, "DispatchPool"))
			pool.Start(ctx)
			defer pool.Stop()

			scanUC := usecase.NewScanUseCase(a.users, a.payments, logging.Component(a.log, "ScanUC"))
			reminderUC := usecase.NewReminderUseCase(scanUC, red.NewLocker(redisClient), a.cfg.Scheduler.LockTTL, pool, a.tr, logging.Component(a.log, "ReminderUC"))

			rep, err := reminderUC.RunDailyScan(ctx, settingsUC.Current(), sink)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log reminders instead of sending them")
	return cmd
}

func printReport(w io.Writer, rep *usecase.ScanReport) {
	if rep.Skipped {
		fmt.Fprintf(w, "skipped: another worker already ran the pass for %s\n", rep.Date.Format("2006-01-02"))
		return
	}
	fmt.Fprintf(w, "run %s (%s): %d scanned, %d muted, %d due, %d sent, %d failed\n",
		rep.RunID, rep.Date.Format("2006-01-02"), rep.Scanned, rep.Muted, len(rep.Due), rep.Sent(), rep.Failed())
	for _, res := range rep.Results {
		if res.Err != nil {
			fmt.Fprintf(w, "  user %d: %v\n", res.UserID, res.Err)
		}
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(w, "  user %d unreadable: %v\n", f.UserID, f.Err)
	}
}
