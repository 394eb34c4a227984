package commands

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/dataset"
	"github.com/edp-labs/dataops/internal/notify"
	"github.com/edp-labs/dataops/internal/table"
)

// NewPushCommand creates the push command.
func NewPushCommand() *cobra.Command {
	var (
		inFile   string
		saveUser string
		noNotify bool
	)

	cmd := &cobra.Command{
		Use:   "push <dataset>",
		Short: "Upload an edited CSV back to a dataset",
		Long: `Upload a locally edited CSV. The current object is loaded first and the
write only succeeds if it has not changed in the meantime; system
columns (row_id, last_modified, is_active, modified_by) are stamped on
the way in and the save is recorded in the audit log.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			logger := config.GetLogger(cmd.Context())
			ctx := cmd.Context()

			f, err := os.Open(inFile)
			if err != nil {
				return fmt.Errorf("open %s: %w", inFile, err)
			}
			edited, err := table.ReadCSV(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("parse %s: %w", inFile, err)
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			audit, err := openState(cfg)
			if err != nil {
				return err
			}
			defer audit.Close()

			var publisher dataset.Publisher
			if !noNotify {
				p, err := notify.NewPublisherFromRegion(ctx, cfg.AWS.Region, logger)
				if err != nil {
					logger.Warn("notifications disabled", "error", err)
				} else {
					publisher = p
				}
			}
			svc := dataset.New(store, audit, publisher, datasetDefinitions(cfg), logger)

			if saveUser == "" {
				if u, err := user.Current(); err == nil {
					saveUser = u.Username
				} else {
					saveUser = "unknown"
				}
			}

			snap, err := svc.Load(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := svc.Save(ctx, snap, edited, saveUser)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: +%d -%d ~%d (etag %s)\n",
				args[0], res.Added, res.Deleted, res.Modified, res.ETag)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inFile, "file", "f", "", "CSV file to upload")
	cmd.Flags().StringVar(&saveUser, "user", "", "User recorded in modified_by (default: OS user)")
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "Skip the change notification")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
