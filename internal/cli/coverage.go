package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"billing-reminder-bot/internal/infra/logging"
	"billing-reminder-bot/internal/usecase"
)

type coverageOutput struct {
	UserID         int64   `json:"user_id"`
	Today          string  `json:"today"`
	CoveredThrough *string `json:"covered_through"`
	NextDue        string  `json:"next_due"`
	Due            bool    `json:"due"`
	Muted          bool    `json:"muted"`
}

func newCoverageCmd(opts *rootOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "coverage <user_id>",
		Short: "Print a user's coverage as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("user_id must be numeric: %w", err)
			}
			now := time.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()
			settingsUC, err := a.initSettings(ctx)
			if err != nil {
				return err
			}

			scanUC := usecase.NewScanUseCase(a.users, a.payments, logging.Component(a.log, "ScanUC"))
			cov, err := scanUC.Coverage(ctx, userID, settingsUC.Current(), now)
			if err != nil {
				return err
			}

			out := coverageOutput{
				UserID:  userID,
				Today:   cov.Today.Format(time.DateOnly),
				NextDue: cov.Coverage.NextDue.Format(time.DateOnly),
				Due:     cov.Coverage.IsDue(cov.Today),
				Muted:   cov.Muted,
			}
			if ct := cov.Coverage.CoveredThrough; ct != nil {
				s := ct.Format(time.DateOnly)
				out.CoveredThrough = &s
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC3339 instant instead of now")
	return cmd
}
