package cli

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nishantd01/smart-backoffice/config"
	"github.com/nishantd01/smart-backoffice/logging"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the backoffice command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "backoffice",
		Short: "Smart Backoffice lead collection service",
		Long: `Collects leads and package orders into a spreadsheet table, provisions a
template workbook for every lead and emails the operator and the customer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", ".env", "path to an env-style config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewProvisionCommand(opts))
	cmd.AddCommand(NewKBankTokenCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))

	return cmd
}

// load reads the configuration and builds the logger every command shares.
// validate is false for commands that never open the lead store.
func (o *RootOptions) load(cmd *cobra.Command, validate bool) (*config.Config, *slog.Logger, error) {
	read := config.Read
	if validate {
		read = config.Load
	}
	cfg, err := read(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	return cfg, logging.New(cmd.ErrOrStderr(), cfg.LogLevel), nil
}
