package cli

import (
	"fmt"
	"os"

	"github.com/nishantd01/smart-backoffice/utils"
	"github.com/spf13/cobra"
)

// NewAuthCommand creates the auth command, which caches a Google user token
// for OAuth client credentials.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorise Google access and cache the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load(cmd, false)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			b, err := os.ReadFile(cfg.CredentialsFile)
			if err != nil {
				return fmt.Errorf("unable to read credentials file: %w", err)
			}
			oauthConfig, err := utils.OAuthConfig(b)
			if err != nil {
				return err
			}
			if err := utils.Authorize(cmd.Context(), oauthConfig, cfg.TokenFile, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
			logger.Info("token cached", "path", cfg.TokenFile)
			return nil
		},
	}
}
