package cli

import (
	"fmt"
	"time"

	"github.com/nishantd01/smart-backoffice/kbank"
	"github.com/spf13/cobra"
)

// NewKBankTokenCommand creates the kbank-token diagnostic command.
func NewKBankTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var production bool

	cmd := &cobra.Command{
		Use:   "kbank-token",
		Short: "Request a KBank OAuth client-credentials token",
		Long: `Performs one client-credentials exchange against KBANK_TOKEN_URL with
KBANK_CONSUMER_ID and KBANK_CONSUMER_SECRET and prints the token type and
expiry. Sandbox headers are sent unless --production is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load(cmd, false)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger.Debug("requesting kbank token", "url", cfg.KBankTokenURL)
			tok, err := kbank.Token(cmd.Context(), kbank.Config{
				ConsumerID:     cfg.KBankConsumerID,
				ConsumerSecret: cfg.KBankSecret,
				TokenURL:       cfg.KBankTokenURL,
				TestMode:       !production,
			}, nil)
			if err != nil {
				return fmt.Errorf("kbank token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token_type: %s\n", tok.Type())
			if tok.Expiry.IsZero() {
				fmt.Fprintln(out, "expires: never")
			} else {
				fmt.Fprintf(out, "expires: %s\n", tok.Expiry.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&production, "production", false, "omit the sandbox test-mode headers")
	return cmd
}
