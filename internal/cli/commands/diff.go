package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/dataset"
	"github.com/edp-labs/dataops/internal/diff"
	"github.com/edp-labs/dataops/internal/table"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	var inFile string

	cmd := &cobra.Command{
		Use:   "diff <dataset>",
		Short: "Show what a local CSV would change",
		Args:  cobra.ExactArgs(1),
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
			svc := dataset.New(store, nil, nil, datasetDefinitions(cfg), logger)

			snap, err := svc.Load(ctx, args[0])
			if err != nil {
				return err
			}
			changes, err := svc.Review(snap, edited)
			if err != nil {
				return err
			}
			return printChanges(cmd, changes, cfg.OutputFormat)
		},
	}

	cmd.Flags().StringVarP(&inFile, "file", "f", "", "Edited CSV file to compare")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printChanges(cmd *cobra.Command, changes *diff.Changes, format string) error {
	out := cmd.OutOrStdout()
	if changes.Empty() {
		_, _ = fmt.Fprintln(out, "No changes.")
		return nil
	}

	// In content mode the deleted rows keep the stored table's width,
	// which can differ from the edited header. Size the render table to
	// the widest row so nothing is dropped.
	width := len(changes.Header)
	for _, row := range changes.Deleted {
		if len(row) > width {
			width = len(row)
		}
	}
	header := append([]string{"change"}, changes.Header...)
	for len(header) < width+1 {
		header = append(header, "")
	}

	tbl := table.New(header...)
	appendRow := func(label string, row []string) error {
		fitted := make([]string, width)
		copy(fitted, row)
		return tbl.Append(append([]string{label}, fitted...))
	}
	for _, row := range changes.Added {
		if err := appendRow("added", row); err != nil {
			return err
		}
	}
	for _, row := range changes.Deleted {
		if err := appendRow("deleted", row); err != nil {
			return err
		}
	}
	for _, m := range changes.Modified {
		if err := appendRow("modified-", m.Before); err != nil {
			return err
		}
		if err := appendRow("modified+", m.After); err != nil {
			return err
		}
	}
	if err := renderTable(out, tbl, format); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%s diff: %d added, %d deleted, %d modified\n",
		changes.Mode, len(changes.Added), len(changes.Deleted), len(changes.Modified))
	return nil
}
