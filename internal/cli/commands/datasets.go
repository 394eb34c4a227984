package commands

import (
	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/table"
)

// NewDatasetsCommand creates the datasets command.
func NewDatasetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List configured datasets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)

			tbl := table.New("name", "key", "key_column", "topic_arn")
			for _, def := range datasetDefinitions(cfg) {
				_ = tbl.Append([]string{def.Name, def.Key, def.KeyColumn, def.TopicARN})
			}
			sortRowsByFirstColumn(tbl)
			return renderTable(cmd.OutOrStdout(), tbl, cfg.OutputFormat)
		},
	}
}
