package harness

import (
	"context"
	"log/slog"

	"github.com/infermark/infermark/internal/log"
)

// Sweeper kills stray server processes whose cmdline matches pattern
// and reports how many it reached.
type Sweeper func(ctx context.Context, pattern string) (int, error)

// Runner executes a fixed sequence of Jobs strictly one after
// another. The sequence is built once at startup and never mutated.
type Runner struct {
	jobs  []*Job
	sweep Sweeper
}

func NewRunner(jobs ...*Job) *Runner {
	return &Runner{
		jobs:  jobs,
		sweep: SweepProcesses,
	}
}

// WithSweeper replaces the stray-process sweeper. This method exists
// for unit testing.
func (r *Runner) WithSweeper(s Sweeper) *Runner {
	r.sweep = s
	return r
}

// RunAll runs every job in order and returns their results. The first
// failure stops the remaining sequence: the shared port and GPU may be
// left in an inconsistent state, so later jobs are not attempted.
// After each job, success or failure, stray server processes matching
// the job's pattern are swept as defense in depth against a partial
// teardown; sweep failures are logged, never fatal.
func (r *Runner) RunAll(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.jobs))
	for i, job := range r.jobs {
		jctx := log.WithJob(ctx, job.Name())
		slog.InfoContext(jctx, "running job")

		res := job.Run(jctx)
		results = append(results, res)
		r.sweepAfter(jctx, job)

		if res.Failed() {
			slog.ErrorContext(jctx, "job failed", "result", res)
			if skipped := jobNames(r.jobs[i+1:]); len(skipped) > 0 {
				slog.ErrorContext(ctx, "skipping remaining jobs",
					"failed_job", job.Name(), "skipped", skipped)
			}
			break
		}
		slog.InfoContext(jctx, "job completed", "result", res)
	}
	return results
}

func (r *Runner) sweepAfter(ctx context.Context, job *Job) {
	pattern := job.SweepPattern()
	if pattern == "" {
		return
	}
	n, err := r.sweep(ctx, pattern)
	if err != nil {
		slog.WarnContext(ctx, "stray process sweep failed", "pattern", pattern, "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "swept stray processes", "pattern", pattern, "count", n)
	}
}

func jobNames(jobs []*Job) []string {
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}
