package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/export"
	"github.com/edp-labs/dataops/internal/table"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var (
		manifestFile string
		manifestKey  string
		secretID     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export database queries to timestamped CSV objects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			logger := config.GetLogger(cmd.Context())
			ctx := cmd.Context()

			if (manifestFile == "") == (manifestKey == "") {
				return fmt.Errorf("exactly one of --file or --key is required")
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}

			var manifest *export.Manifest
			if manifestFile != "" {
				f, err := os.Open(manifestFile)
				if err != nil {
					return fmt.Errorf("open %s: %w", manifestFile, err)
				}
				manifest, err = export.ParseManifest(f)
				f.Close()
				if err != nil {
					return err
				}
			} else {
				raw, _, err := store.Get(ctx, manifestKey)
				if err != nil {
					return fmt.Errorf("fetch manifest %s: %w", manifestKey, err)
				}
				manifest, err = export.ParseManifest(bytes.NewReader(raw))
				if err != nil {
					return err
				}
			}

			if secretID == "" {
				secretID = cfg.Secrets.DBSecretID
			}
			if secretID == "" {
				return fmt.Errorf("no database secret configured; set secrets.db_secret_id or --secret")
			}
			provider, err := secretProvider(ctx, cfg)
			if err != nil {
				return err
			}
			creds, err := export.LoadCredentials(ctx, provider, secretID)
			if err != nil {
				return err
			}

			db, err := export.OpenDB(ctx, creds)
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := export.New(db, store, logger).Run(ctx, manifest)
			if err != nil {
				return err
			}

			tbl := table.New("job", "rows", "key", "error")
			failed := 0
			for _, res := range results {
				if res.Err != "" {
					failed++
				}
				_ = tbl.Append([]string{res.Job, fmt.Sprintf("%d", res.Rows), res.Key, res.Err})
			}
			if err := renderTable(cmd.OutOrStdout(), tbl, cfg.OutputFormat); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d export jobs failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestFile, "file", "f", "", "Export manifest (local YAML file)")
	cmd.Flags().StringVar(&manifestKey, "key", "", "Export manifest object key in the configured store")
	cmd.Flags().StringVar(&secretID, "secret", "", "Database credential secret ID")
	return cmd
}
