package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/dataset"
)

// NewPullCommand creates the pull command.
func NewPullCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "pull <dataset>",
		Short: "Download a dataset as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			logger := config.GetLogger(cmd.Context())
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			svc := dataset.New(store, nil, nil, datasetDefinitions(cfg), logger)

			snap, err := svc.Load(ctx, args[0])
			if err != nil {
				return err
			}

			if outFile == "" {
				return snap.Table.WriteCSV(cmd.OutOrStdout())
			}
			f, err := os.Create(outFile)
			if err != nil {
				return fmt.Errorf("create %s: %w", outFile, err)
			}
			defer f.Close()
			if err := snap.Table.WriteCSV(f); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s (etag %s)\n",
				snap.Table.NumRows(), outFile, snap.ETag)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "file", "f", "", "Write CSV to this file instead of stdout")
	return cmd
}
