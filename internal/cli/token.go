package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"billing-reminder-bot/internal/config"
	"billing-reminder-bot/internal/infra/web"
)

func newAdminTokenCmd(opts *rootOptions) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint a bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.cfgPath, opts.dev)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Admin.JWTSecret == "" {
				return errors.New("admin.jwt_secret (or ADMIN_JWT_SECRET) is not set")
			}
			token, err := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL).Mint(subject)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject, e.g. an admin's Telegram id")
	return cmd
}
