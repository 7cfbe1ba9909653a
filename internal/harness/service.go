package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/infermark/infermark/internal/model"
)

// Service wraps a whole benchmark run: manual mode executes it once
// and returns its error, timer mode executes it on a schedule until
// the context is cancelled.
type Service struct {
	oneshot bool
	jobDef  gocron.JobDefinition
	run     func(context.Context) error
}

// NewService validates the schedule up front so a bad cron expression
// fails at startup, not at first firing.
func NewService(cfg model.Service, run func(context.Context) error) (*Service, error) {
	s := &Service{
		oneshot: cfg.Mode != model.ServiceModeTimer,
		run:     run,
	}
	if s.oneshot {
		return s, nil
	}

	if cfg.Schedule == nil {
		return nil, fmt.Errorf("service.schedule is nil")
	}
	switch {
	case cfg.Schedule.Cron != "":
		if _, err := model.ParseCron(cfg.Schedule.Cron); err != nil {
			return nil, fmt.Errorf("parsing service.schedule.cron: %w", err)
		}
		s.jobDef = gocron.CronJob(cfg.Schedule.Cron, false)
	case cfg.Schedule.Duration != "":
		d, err := model.ParseDuration(cfg.Schedule.Duration)
		if err != nil {
			return nil, fmt.Errorf("parsing service.schedule.duration: %w", err)
		}
		s.jobDef = gocron.DurationJob(d)
	default:
		return nil, errors.New("both cron and duration are empty")
	}
	return s, nil
}

func (s *Service) Do(ctx context.Context) error {
	if s.oneshot {
		return s.run(ctx)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		s.jobDef,
		gocron.NewTask(func() {
			// in timer mode a failed run is logged, the schedule
			// keeps going
			if err := s.run(ctx); err != nil {
				slog.ErrorContext(ctx, "benchmark run failed", "error", err)
			}
		}),
		// runs share one port and one GPU; a run that outlasts the
		// schedule interval must defer the next firing, never overlap it
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("initializing gocron job: %w", err)
	}

	scheduler.Start()
	<-ctx.Done()
	if err := scheduler.Shutdown(); err != nil {
		slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
	}
	return nil
}
