package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/costs"
	"github.com/edp-labs/dataops/internal/state"
	"github.com/edp-labs/dataops/internal/table"
)

// NewCostsCommand creates the costs command.
func NewCostsCommand() *cobra.Command {
	var (
		fromStr  string
		toStr    string
		jobsFile string
		column   string
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "costs [job-name...]",
		Short: "Report ETL job costs over a date window",
		Long: `Compute per-job cost from the run history of the named managed ETL
jobs. Job names come from arguments or from a CSV file column. Only
successful runs started inside the window are priced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			logger := config.GetLogger(cmd.Context())
			ctx := cmd.Context()

			from, to, err := parseWindow(fromStr, toStr)
			if err != nil {
				return err
			}

			jobNames := args
			if jobsFile != "" {
				f, err := os.Open(jobsFile)
				if err != nil {
					return fmt.Errorf("open %s: %w", jobsFile, err)
				}
				col := column
				if col == "" {
					col = cfg.Costs.JobColumn
				}
				fromCSV, err := costs.JobNamesFromCSV(f, col)
				f.Close()
				if err != nil {
					return err
				}
				jobNames = append(jobNames, fromCSV...)
			}
			if len(jobNames) == 0 {
				return fmt.Errorf("no job names given; pass arguments or --jobs-file")
			}

			if workers == 0 {
				workers = cfg.Costs.Workers
			}
			calc := costs.New(costs.Config{
				Factory:     costs.NewClientFactory(cfg.AWS.Region),
				WindowStart: from,
				WindowEnd:   to,
				Workers:     workers,
				Logger:      logger,
			})
			report, err := calc.Run(ctx, jobNames)
			if err != nil {
				return err
			}

			if audit, err := openState(cfg); err == nil {
				rerr := audit.RecordReportRun(&state.ReportRun{
					Jobs:        len(report.Jobs),
					FailedJobs:  report.FailedJobs,
					TotalCost:   report.TotalCost,
					WindowStart: report.WindowStart,
					WindowEnd:   report.WindowEnd,
				})
				if rerr != nil {
					logger.Warn("report run not recorded", "error", rerr)
				}
				_ = audit.Close()
			} else {
				logger.Warn("audit database unavailable", "error", err)
			}

			return printReport(cmd, report, cfg.OutputFormat)
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "Window start (YYYY-MM-DD, default: first of current month)")
	cmd.Flags().StringVar(&toStr, "to", "", "Window end (YYYY-MM-DD, default: today)")
	cmd.Flags().StringVar(&jobsFile, "jobs-file", "", "CSV file listing job names")
	cmd.Flags().StringVar(&column, "column", "", "Job name column in --jobs-file")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel workers")
	return cmd
}

// parseWindow resolves the report window; the end date is inclusive.
func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := now

	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date %q: %w", fromStr, err)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date %q: %w", toStr, err)
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("window end %s is before start %s", toStr, fromStr)
	}
	return from, to, nil
}

func printReport(cmd *cobra.Command, report *costs.Report, format string) error {
	out := cmd.OutOrStdout()

	tbl := table.New("job_name", "glue_version", "runs", "succeeded", "failed", "cost_usd", "error")
	for _, jc := range report.Jobs {
		_ = tbl.Append([]string{
			jc.Job,
			jc.GlueVersion,
			strconv.Itoa(jc.TotalRuns),
			strconv.Itoa(jc.SuccessfulRuns),
			strconv.Itoa(jc.FailedRuns),
			fmt.Sprintf("%.2f", jc.TotalCost),
			jc.Err,
		})
	}
	if err := renderTable(out, tbl, format); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Window %s to %s: %d jobs (%d failed), total %.2f USD\n",
		report.WindowStart.Format("2006-01-02"), report.WindowEnd.Format("2006-01-02"),
		len(report.Jobs), report.FailedJobs, report.TotalCost)
	return nil
}
