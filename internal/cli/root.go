package cli

import (
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X billing-reminder-bot/internal/cli.version=..."
var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	cfgPath string
	dev     bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "billing-reminder-bot",
		Short: "Shared-subscription billing reminders over Telegram",
		Long: `billing-reminder-bot records subscription payments sent to a Telegram bot,
derives each member's coverage from the billing cycle and reminds members
whose next payment is due.`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgPath, "config", "config.yaml", "path to YAML config file")
	root.PersistentFlags().BoolVar(&opts.dev, "dev", false, "developer mode: console logs, verbose errors")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newScanCmd(opts))
	root.AddCommand(newCoverageCmd(opts))
	root.AddCommand(newAdminTokenCmd(opts))
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}
