package costs

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp-labs/dataops/internal/testutil"
)

type fakeJob struct {
	version  string
	maxCap   float64
	runs     []gluetypes.JobRun
	pageSize int
	err      error
}

type fakeGlue struct {
	jobs map[string]*fakeJob
}

func (f *fakeGlue) GetJob(_ context.Context, in *glue.GetJobInput, _ ...func(*glue.Options)) (*glue.GetJobOutput, error) {
	job, ok := f.jobs[aws.ToString(in.JobName)]
	if !ok {
		return nil, errors.New("EntityNotFoundException")
	}
	if job.err != nil {
		return nil, job.err
	}
	out := &glue.GetJobOutput{Job: &gluetypes.Job{
		Name:        in.JobName,
		GlueVersion: aws.String(job.version),
	}}
	if job.maxCap > 0 {
		out.Job.MaxCapacity = aws.Float64(job.maxCap)
	}
	return out, nil
}

func (f *fakeGlue) GetJobRuns(_ context.Context, in *glue.GetJobRunsInput, _ ...func(*glue.Options)) (*glue.GetJobRunsOutput, error) {
	job, ok := f.jobs[aws.ToString(in.JobName)]
	if !ok {
		return nil, errors.New("EntityNotFoundException")
	}
	runs := job.runs
	size := job.pageSize
	if size <= 0 {
		size = len(runs)
	}
	start := 0
	if in.NextToken != nil {
		var err error
		start, err = strconv.Atoi(aws.ToString(in.NextToken))
		if err != nil {
			return nil, err
		}
	}
	end := start + size
	if end > len(runs) {
		end = len(runs)
	}
	out := &glue.GetJobRunsOutput{JobRuns: runs[start:end]}
	if end < len(runs) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func succeededRun(start time.Time, dur time.Duration, dpu float64) gluetypes.JobRun {
	run := gluetypes.JobRun{
		JobRunState: gluetypes.JobRunStateSucceeded,
		StartedOn:   aws.Time(start),
		CompletedOn: aws.Time(start.Add(dur)),
	}
	if dpu > 0 {
		run.MaxCapacity = aws.Float64(dpu)
	}
	return run
}

func newTestCalculator(t *testing.T, jobs map[string]*fakeJob, start, end time.Time) *Calculator {
	t.Helper()
	client := &fakeGlue{jobs: jobs}
	return New(Config{
		Factory:     func(context.Context) (glueAPI, error) { return client, nil },
		WindowStart: start,
		WindowEnd:   end,
		Workers:     4,
		Logger:      testutil.NewTestLogger(t),
	})
}

func TestRunSingleJob(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	calc := newTestCalculator(t, map[string]*fakeJob{
		"etl-orders": {
			version: "4.0",
			maxCap:  10,
			runs: []gluetypes.JobRun{
				succeededRun(start.Add(24*time.Hour), time.Hour, 10),
			},
		},
	}, start, end)

	report, err := calc.Run(context.Background(), []string{"etl-orders"})
	require.NoError(t, err)
	require.Len(t, report.Jobs, 1)

	jc := report.Jobs[0]
	assert.Equal(t, "etl-orders", jc.Job)
	assert.Equal(t, "4.0", jc.GlueVersion)
	assert.Equal(t, 1, jc.TotalRuns)
	assert.Equal(t, 1, jc.SuccessfulRuns)
	assert.InDelta(t, 4.40, jc.TotalCost, 0.001)
	assert.InDelta(t, 4.40, report.TotalCost, 0.001)
}

func TestRunNoSuccessfulRuns(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	failed := gluetypes.JobRun{
		JobRunState: gluetypes.JobRunStateFailed,
		StartedOn:   aws.Time(start.Add(time.Hour)),
		CompletedOn: aws.Time(start.Add(2 * time.Hour)),
		MaxCapacity: aws.Float64(10),
	}
	calc := newTestCalculator(t, map[string]*fakeJob{
		"etl-empty": {version: "3.0", maxCap: 10, runs: []gluetypes.JobRun{failed}},
	}, start, end)

	report, err := calc.Run(context.Background(), []string{"etl-empty"})
	require.NoError(t, err)
	require.Len(t, report.Jobs, 1)

	jc := report.Jobs[0]
	assert.Equal(t, 1, jc.TotalRuns)
	assert.Equal(t, 0, jc.SuccessfulRuns)
	assert.Equal(t, 1, jc.FailedRuns)
	assert.Equal(t, 0.0, jc.TotalCost)
}

func TestRunWindowFilter(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	calc := newTestCalculator(t, map[string]*fakeJob{
		"etl-windowed": {
			version: "4.0",
			maxCap:  10,
			runs: []gluetypes.JobRun{
				succeededRun(start.AddDate(0, 0, -2), time.Hour, 10), // before window
				succeededRun(start.Add(12*time.Hour), time.Hour, 10),
				succeededRun(end.AddDate(0, 0, 2), time.Hour, 10), // after window
			},
		},
	}, start, end)

	report, err := calc.Run(context.Background(), []string{"etl-windowed"})
	require.NoError(t, err)
	jc := report.Jobs[0]
	assert.Equal(t, 1, jc.TotalRuns)
	assert.InDelta(t, 4.40, jc.TotalCost, 0.001)
}

func TestRunErrorIsolation(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	calc := newTestCalculator(t, map[string]*fakeJob{
		"etl-good": {
			version: "4.0",
			maxCap:  10,
			runs:    []gluetypes.JobRun{succeededRun(start.Add(time.Hour), time.Hour, 10)},
		},
		"etl-broken": {version: "4.0", err: errors.New("AccessDeniedException")},
	}, start, end)

	report, err := calc.Run(context.Background(), []string{"etl-good", "etl-broken", "etl-missing"})
	require.NoError(t, err)
	require.Len(t, report.Jobs, 3)
	assert.Equal(t, 2, report.FailedJobs)

	// Sorted by cost descending, so the good job comes first.
	assert.Equal(t, "etl-good", report.Jobs[0].Job)
	assert.Empty(t, report.Jobs[0].Err)
	for _, jc := range report.Jobs[1:] {
		assert.NotEmpty(t, jc.Err)
		assert.Equal(t, 0.0, jc.TotalCost)
	}
}

func TestRunPaginatesJobRuns(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var runs []gluetypes.JobRun
	for i := 0; i < 5; i++ {
		runs = append(runs, succeededRun(start.Add(time.Duration(i+1)*time.Hour), 30*time.Minute, 2))
	}
	calc := newTestCalculator(t, map[string]*fakeJob{
		"etl-paged": {version: "5.0", maxCap: 2, runs: runs, pageSize: 2},
	}, start, end)

	report, err := calc.Run(context.Background(), []string{"etl-paged"})
	require.NoError(t, err)
	jc := report.Jobs[0]
	assert.Equal(t, 5, jc.SuccessfulRuns)
	// 5 runs × 0.5h × 2 DPU × 0.44 = 2.20
	assert.InDelta(t, 2.20, jc.TotalCost, 0.001)
}

func TestRunUnknownVersionRate(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	calc := newTestCalculator(t, map[string]*fakeJob{
		"etl-legacy": {
			version: "1.0",
			maxCap:  10,
			runs:    []gluetypes.JobRun{succeededRun(start.Add(time.Hour), time.Hour, 10)},
		},
	}, start, end)

	report, err := calc.Run(context.Background(), []string{"etl-legacy"})
	require.NoError(t, err)
	// Unknown versions fall back to the 2.0 rate.
	assert.InDelta(t, 4.40, report.Jobs[0].TotalCost, 0.001)
}

func TestJobNamesFromCSV(t *testing.T) {
	in := "job_name,owner\netl-a,team1\netl-b,team2\n,team3\netl-a,team1\n"
	names, err := JobNamesFromCSV(strings.NewReader(in), "job_name")
	require.NoError(t, err)
	assert.Equal(t, []string{"etl-a", "etl-b"}, names)
}

func TestJobNamesFromCSVMissingColumn(t *testing.T) {
	_, err := JobNamesFromCSV(strings.NewReader("name\netl-a\n"), "job_name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job_name")
}

func TestRunEmptyJobList(t *testing.T) {
	calc := newTestCalculator(t, nil, time.Time{}, time.Time{})
	report, err := calc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Jobs)
	assert.Equal(t, 0.0, report.TotalCost)
}
