// Package costs computes managed-ETL job billing reports: for each Glue
// job, fetch its run history inside a date window, price the successful
// runs, and aggregate into a report sorted by descending cost.
package costs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"golang.org/x/sync/errgroup"
)

// glueAPI is the subset of the Glue client the calculator uses.
type glueAPI interface {
	GetJob(ctx context.Context, in *glue.GetJobInput, optFns ...func(*glue.Options)) (*glue.GetJobOutput, error)
	GetJobRuns(ctx context.Context, in *glue.GetJobRunsInput, optFns ...func(*glue.Options)) (*glue.GetJobRunsOutput, error)
}

// ClientFactory builds a Glue client. Each parallel worker calls it once
// so that no client is shared across goroutines.
type ClientFactory func(ctx context.Context) (glueAPI, error)

// NewClientFactory returns a factory constructing real Glue clients for
// the region.
func NewClientFactory(region string) ClientFactory {
	return func(ctx context.Context) (glueAPI, error) {
		var opts []func(*awsconfig.LoadOptions) error
		if region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return glue.NewFromConfig(awsCfg), nil
	}
}

// JobCost is the per-job aggregation. A job whose fetch failed carries
// Err and a zero cost; it never aborts the batch.
type JobCost struct {
	Job            string  `json:"job_name"`
	GlueVersion    string  `json:"glue_version"`
	TotalRuns      int     `json:"total_runs"`
	SuccessfulRuns int     `json:"successful_runs"`
	FailedRuns     int     `json:"failed_runs"`
	TotalCost      float64 `json:"total_cost_usd"`
	Err            string  `json:"error,omitempty"`
}

// Report is the aggregated result, jobs sorted by descending cost.
type Report struct {
	Jobs        []JobCost `json:"jobs"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	TotalCost   float64   `json:"total_cost_usd"`
	FailedJobs  int       `json:"failed_jobs"`
}

// Config parameterizes a Calculator.
type Config struct {
	Factory     ClientFactory
	Pricing     Pricing
	WindowStart time.Time
	WindowEnd   time.Time
	Workers     int
	Logger      *slog.Logger
}

// Calculator fans out per-job cost aggregation over a bounded worker
// pool.
type Calculator struct {
	factory ClientFactory
	pricing Pricing
	start   time.Time
	end     time.Time
	workers int
	logger  *slog.Logger
}

// New creates a Calculator. Workers defaults to 8.
func New(cfg Config) *Calculator {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Pricing == nil {
		cfg.Pricing = DefaultPricing()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Calculator{
		factory: cfg.Factory,
		pricing: cfg.Pricing,
		start:   cfg.WindowStart,
		end:     cfg.WindowEnd,
		workers: cfg.Workers,
		logger:  logger,
	}
}

// Run computes costs for every job name. Jobs are processed concurrently
// up to the worker limit; each worker constructs its own client. Per-job
// failures are isolated into error-flagged zero-cost rows.
func (c *Calculator) Run(ctx context.Context, jobNames []string) (*Report, error) {
	if len(jobNames) == 0 {
		return &Report{WindowStart: c.start, WindowEnd: c.end}, nil
	}

	c.logger.Info("starting cost report", "jobs", len(jobNames), "workers", c.workers,
		"window_start", c.start, "window_end", c.end)

	results := make([]JobCost, len(jobNames))
	var mu sync.Mutex
	var done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, name := range jobNames {
		g.Go(func() error {
			jc := c.jobCost(gctx, name)
			mu.Lock()
			results[i] = jc
			done++
			n := done
			mu.Unlock()
			if jc.Err != "" {
				c.logger.Warn("job cost failed", "job", name, "progress", n, "total", len(jobNames), "error", jc.Err)
			} else {
				c.logger.Info("job cost computed", "job", name, "progress", n, "total", len(jobNames), "cost_usd", jc.TotalCost)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Jobs: results, WindowStart: c.start, WindowEnd: c.end}
	for _, jc := range report.Jobs {
		report.TotalCost += jc.TotalCost
		if jc.Err != "" {
			report.FailedJobs++
		}
	}
	report.TotalCost = roundCents(report.TotalCost)
	sort.SliceStable(report.Jobs, func(i, j int) bool {
		return report.Jobs[i].TotalCost > report.Jobs[j].TotalCost
	})

	c.logger.Info("cost report complete", "jobs", len(report.Jobs),
		"failed_jobs", report.FailedJobs, "total_cost_usd", report.TotalCost)
	return report, nil
}

// jobCost aggregates one job. All errors collapse into the Err field.
func (c *Calculator) jobCost(ctx context.Context, name string) JobCost {
	jc := JobCost{Job: name, GlueVersion: "unknown"}

	client, err := c.factory(ctx)
	if err != nil {
		jc.Err = err.Error()
		return jc
	}

	version, defaultDPU, err := c.jobDetails(ctx, client, name)
	if err != nil {
		jc.Err = err.Error()
		return jc
	}
	jc.GlueVersion = version

	runs, err := c.jobRunsInWindow(ctx, client, name)
	if err != nil {
		jc.Err = err.Error()
		return jc
	}

	rate := c.pricing.Rate(version)
	var total float64
	for _, run := range runs {
		jc.TotalRuns++
		if run.JobRunState != gluetypes.JobRunStateSucceeded {
			jc.FailedRuns++
			continue
		}
		jc.SuccessfulRuns++
		total += runCost(run, defaultDPU, rate)
	}
	jc.TotalCost = roundCents(total)
	return jc
}

// jobDetails returns the job's Glue version and default capacity.
func (c *Calculator) jobDetails(ctx context.Context, client glueAPI, name string) (string, float64, error) {
	out, err := client.GetJob(ctx, &glue.GetJobInput{JobName: aws.String(name)})
	if err != nil {
		return "", 0, fmt.Errorf("get job %s: %w", name, err)
	}
	job := out.Job
	if job == nil {
		return "", 0, fmt.Errorf("get job %s: empty response", name)
	}
	version := aws.ToString(job.GlueVersion)
	if version == "" {
		version = defaultVersion
	}
	dpu := aws.ToFloat64(job.MaxCapacity)
	if dpu == 0 && job.AllocatedCapacity != 0 {
		dpu = float64(job.AllocatedCapacity)
	}
	if dpu == 0 {
		dpu = 10
	}
	return version, dpu, nil
}

// jobRunsInWindow pages through the job's run history and keeps runs
// started inside the report window.
func (c *Calculator) jobRunsInWindow(ctx context.Context, client glueAPI, name string) ([]gluetypes.JobRun, error) {
	var runs []gluetypes.JobRun
	var token *string
	for {
		out, err := client.GetJobRuns(ctx, &glue.GetJobRunsInput{
			JobName:    aws.String(name),
			MaxResults: aws.Int32(200),
			NextToken:  token,
		})
		if err != nil {
			return nil, fmt.Errorf("get job runs %s: %w", name, err)
		}
		for _, run := range out.JobRuns {
			started := aws.ToTime(run.StartedOn)
			if started.IsZero() || started.Before(c.start) || started.After(c.end) {
				continue
			}
			runs = append(runs, run)
		}
		if out.NextToken == nil {
			break
		}
		token = out.NextToken
	}
	return runs, nil
}

// runCost prices a single successful run: duration hours × DPU × rate.
// Runs missing a start or completion time cost nothing.
func runCost(run gluetypes.JobRun, defaultDPU, rate float64) float64 {
	started := aws.ToTime(run.StartedOn)
	completed := aws.ToTime(run.CompletedOn)
	if started.IsZero() || completed.IsZero() || completed.Before(started) {
		return 0
	}
	hours := completed.Sub(started).Hours()

	dpu := float64(run.AllocatedCapacity)
	if dpu == 0 {
		dpu = aws.ToFloat64(run.MaxCapacity)
	}
	if dpu == 0 {
		dpu = defaultDPU
	}
	return hours * dpu * rate
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
