// Package run wires configuration, the framework catalog and the
// harness into complete benchmark runs.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/infermark/infermark/internal/framework"
	"github.com/infermark/infermark/internal/harness"
	"github.com/infermark/infermark/internal/model"
)

// Frameworks implements the CLI frameworks command.
func Frameworks() []string {
	return framework.Names()
}

// Run implements the CLI run command: once in manual mode, on a
// schedule in timer mode.
func Run(ctx context.Context, cfg model.Config, root string) error {
	svc, err := harness.NewService(cfg.Service, func(ctx context.Context) error {
		return once(ctx, cfg, root)
	})
	if err != nil {
		return err
	}
	return svc.Do(ctx)
}

// once executes one full benchmark run: prepare the environment,
// build the job sequence with fresh log sinks and drive it.
func once(ctx context.Context, cfg model.Config, root string) error {
	logsDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}

	slog.InfoContext(ctx, "starting benchmark run", "port", cfg.Port, "model", cfg.Model, "jobs", cfg.Jobs)

	if err := framework.Preparer(root).Do(ctx, os.Stdout); err != nil {
		return fmt.Errorf("preparing environment: %w", err)
	}

	jobs, err := buildJobs(cfg, root, logsDir)
	if err != nil {
		return err
	}

	results := harness.NewRunner(jobs...).RunAll(ctx)
	// a failure skips the remaining jobs; release their unused sinks
	for _, job := range jobs {
		job.Close(ctx)
	}
	for _, res := range results {
		if res.Failed() {
			return fmt.Errorf("job %s failed at %s stage: %w", res.Job, res.Stage, res.Err)
		}
	}

	slog.InfoContext(ctx, "benchmark results available", "path", filepath.Join(root, framework.ResultsFile))
	return nil
}

// buildJobs creates fresh Job instances bound to fresh log sinks.
// Jobs are never reused across runs.
func buildJobs(cfg model.Config, root, logsDir string) ([]*harness.Job, error) {
	specs, err := framework.Specs(cfg, root)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.ReadinessTimeout()
	if err != nil {
		return nil, fmt.Errorf("parsing readiness.timeout: %w", err)
	}
	interval, err := cfg.ReadinessInterval()
	if err != nil {
		return nil, fmt.Errorf("parsing readiness.interval: %w", err)
	}

	probe := harness.NewProbe(timeout, interval)
	supervisor := harness.NewExecSupervisor()

	var sinks []*os.File
	closeAll := func() {
		for _, f := range sinks {
			_ = f.Close()
		}
	}

	jobs := make([]*harness.Job, 0, len(specs))
	for _, spec := range specs {
		serverLog, err := openLog(logsDir, spec.Name+".log")
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, serverLog)

		workloadLog, err := openLog(logsDir, "bench-"+spec.Name+".log")
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, workloadLog)

		jobs = append(jobs, harness.NewJob(spec, supervisor, probe, serverLog, workloadLog))
	}
	return jobs, nil
}

func openLog(dir, name string) (*os.File, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log %s: %w", path, err)
	}
	return f, nil
}
