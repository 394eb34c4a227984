package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/table"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		limit int
		runs  bool
	)

	cmd := &cobra.Command{
		Use:   "history [dataset]",
		Short: "Show the audit trail of saves and report runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)

			audit, err := openState(cfg)
			if err != nil {
				return err
			}
			defer audit.Close()

			if runs {
				reportRuns, err := audit.ListReportRuns(limit)
				if err != nil {
					return err
				}
				tbl := table.New("created_at", "jobs", "failed_jobs", "total_cost_usd", "window")
				for _, r := range reportRuns {
					_ = tbl.Append([]string{
						r.CreatedAt.Format(time.RFC3339),
						strconv.Itoa(r.Jobs),
						strconv.Itoa(r.FailedJobs),
						fmt.Sprintf("%.2f", r.TotalCost),
						fmt.Sprintf("%s..%s", r.WindowStart.Format("2006-01-02"), r.WindowEnd.Format("2006-01-02")),
					})
				}
				return renderTable(cmd.OutOrStdout(), tbl, cfg.OutputFormat)
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			events, err := audit.ListSaves(name, limit)
			if err != nil {
				return err
			}
			tbl := table.New("created_at", "dataset", "user", "added", "deleted", "modified", "key", "etag")
			for _, ev := range events {
				_ = tbl.Append([]string{
					ev.CreatedAt.Format(time.RFC3339),
					ev.Dataset,
					ev.User,
					strconv.Itoa(ev.Added),
					strconv.Itoa(ev.Deleted),
					strconv.Itoa(ev.Modified),
					ev.ObjectKey,
					ev.ETag,
				})
			}
			return renderTable(cmd.OutOrStdout(), tbl, cfg.OutputFormat)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	cmd.Flags().BoolVar(&runs, "runs", false, "Show cost report runs instead of saves")
	return cmd
}
