package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/loadtest"
	"github.com/edp-labs/dataops/internal/table"
)

// NewLoadtestCommand creates the loadtest command.
func NewLoadtestCommand() *cobra.Command {
	var (
		url      string
		method   string
		body     string
		bodyFile string
		headers  []string
		requests int
		workers  int
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Fire concurrent HTTP requests at an endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			logger := config.GetLogger(cmd.Context())

			payload := []byte(body)
			if bodyFile != "" {
				data, err := os.ReadFile(bodyFile)
				if err != nil {
					return fmt.Errorf("read %s: %w", bodyFile, err)
				}
				payload = data
			}

			headerMap := make(map[string]string, len(headers))
			for _, h := range headers {
				k, v, ok := strings.Cut(h, ":")
				if !ok || k == "" {
					return fmt.Errorf("invalid header %q, want key:value", h)
				}
				headerMap[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}

			runner := loadtest.New(nil, logger)
			stats, err := runner.Run(cmd.Context(), loadtest.Options{
				URL:      url,
				Method:   method,
				Body:     payload,
				Headers:  headerMap,
				Requests: requests,
				Workers:  workers,
				Timeout:  timeout,
			})
			if err != nil {
				return err
			}

			tbl := table.New("metric", "value")
			_ = tbl.Append([]string{"requests", fmt.Sprintf("%d", stats.Requests)})
			_ = tbl.Append([]string{"succeeded", fmt.Sprintf("%d", stats.Succeeded)})
			_ = tbl.Append([]string{"failed", fmt.Sprintf("%d", stats.Failed)})
			_ = tbl.Append([]string{"elapsed", stats.Elapsed.Round(time.Millisecond).String()})
			_ = tbl.Append([]string{"latency_min", stats.Min.Round(time.Microsecond).String()})
			_ = tbl.Append([]string{"latency_avg", stats.Avg.Round(time.Microsecond).String()})
			_ = tbl.Append([]string{"latency_max", stats.Max.Round(time.Microsecond).String()})
			_ = tbl.Append([]string{"latency_p95", stats.P95.Round(time.Microsecond).String()})
			return renderTable(cmd.OutOrStdout(), tbl, cfg.OutputFormat)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Target URL")
	cmd.Flags().StringVar(&method, "method", "POST", "HTTP method")
	cmd.Flags().StringVar(&body, "body", "", "Request body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read request body from file")
	cmd.Flags().StringArrayVar(&headers, "header", nil, "Request header key:value (repeatable)")
	cmd.Flags().IntVar(&requests, "requests", 100, "Total request count")
	cmd.Flags().IntVar(&workers, "workers", 10, "Concurrent workers")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall run timeout (0 = none)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
