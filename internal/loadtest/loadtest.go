// Package loadtest fires concurrent HTTP requests at an endpoint and
// summarizes latency, for smoke-testing service capacity before a
// release.
package loadtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures a run.
type Options struct {
	URL      string
	Method   string
	Body     []byte
	Headers  map[string]string
	Requests int
	Workers  int
	Timeout  time.Duration
}

// Stats is the aggregated outcome of a run.
type Stats struct {
	Requests  int           `json:"requests"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
	Min       time.Duration `json:"min"`
	Max       time.Duration `json:"max"`
	Avg       time.Duration `json:"avg"`
	P95       time.Duration `json:"p95"`
}

// Runner drives the load.
type Runner struct {
	client *http.Client
	logger *slog.Logger
}

// New creates a Runner. A nil client falls back to a default with a
// 30 second timeout.
func New(client *http.Client, logger *slog.Logger) *Runner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{client: client, logger: logger}
}

// Run sends opts.Requests requests through a pool of opts.Workers
// goroutines. A non-2xx response or transport error counts as a
// failure; individual failures never abort the run.
func (r *Runner) Run(ctx context.Context, opts Options) (*Stats, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("load test: no target url")
	}
	if opts.Requests <= 0 {
		return nil, fmt.Errorf("load test: request count must be positive")
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Method == "" {
		opts.Method = http.MethodPost
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	r.logger.Info("load test starting", "url", opts.URL, "requests", opts.Requests, "workers", opts.Workers)
	start := time.Now()

	latencies := make([]time.Duration, 0, opts.Requests)
	var failed int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < opts.Requests; i++ {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			d, err := r.fire(gctx, opts)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				latencies = append(latencies, d)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := summarize(latencies, failed, time.Since(start))
	r.logger.Info("load test complete", "succeeded", stats.Succeeded, "failed", stats.Failed,
		"avg", stats.Avg, "p95", stats.P95)
	return stats, nil
}

func (r *Runner) fire(ctx context.Context, opts Options) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, bytes.NewReader(opts.Body))
	if err != nil {
		return 0, err
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	return time.Since(start), nil
}

func summarize(latencies []time.Duration, failed int, elapsed time.Duration) *Stats {
	stats := &Stats{
		Requests:  len(latencies) + failed,
		Succeeded: len(latencies),
		Failed:    failed,
		Elapsed:   elapsed,
	}
	if len(latencies) == 0 {
		return stats
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	stats.Min = latencies[0]
	stats.Max = latencies[len(latencies)-1]
	stats.Avg = total / time.Duration(len(latencies))

	idx := (len(latencies) * 95) / 100
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	stats.P95 = latencies[idx]
	return stats
}
