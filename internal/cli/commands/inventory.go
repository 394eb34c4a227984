package commands

import (
	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/inventory"
)

// NewInventoryCommand creates the inventory command.
func NewInventoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory [subnet-id...]",
		Short: "List network interfaces, optionally per subnet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			logger := config.GetLogger(cmd.Context())
			ctx := cmd.Context()

			scanner, err := inventory.NewFromRegion(ctx, cfg.AWS.Region, logger)
			if err != nil {
				return err
			}
			ifaces, err := scanner.Scan(ctx, args)
			if err != nil {
				return err
			}
			return renderTable(cmd.OutOrStdout(), inventory.Tabulate(ifaces), cfg.OutputFormat)
		},
	}
}
