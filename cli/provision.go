package cli

import (
	"encoding/json"
	"fmt"

	"github.com/nishantd01/smart-backoffice/models"
	"github.com/spf13/cobra"
)

type provisionFlags struct {
	BusinessName string
	Email        string
}

// NewProvisionCommand creates the provision command.
func NewProvisionCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &provisionFlags{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create one template workbook and print its id and url",
		Long: `Runs the workbook provisioner once, outside the HTTP flow. The workbook
is shared with --email when given. Output is JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load(cmd, true)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app, err := Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			wb, err := app.Provisioner.Provision(cmd.Context(), models.LeadRecord{
				BusinessName: flags.BusinessName,
				Email:        flags.Email,
			})
			if err != nil {
				return fmt.Errorf("provision workbook: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(wb)
		},
	}

	cmd.Flags().StringVar(&flags.BusinessName, "business-name", "", "business name used in the workbook title")
	cmd.Flags().StringVar(&flags.Email, "email", "", "grant this address edit access")
	return cmd
}
