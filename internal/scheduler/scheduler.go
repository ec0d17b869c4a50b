// Package scheduler runs reconciliation on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/mcfradar/internal/lock"
	"github.com/amishk599/mcfradar/internal/model"
	"github.com/amishk599/mcfradar/internal/reconcile"
)

// Runner executes one reconciliation pass.
type Runner interface {
	Run(ctx context.Context, opts reconcile.Options) (*reconcile.Result, error)
}

// Scheduler triggers a run on every tick of a cron spec and announces each
// result. A tick that arrives while a run is still going is skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	runner   Runner
	notifier model.Notifier
	opts     reconcile.Options
	logger   *slog.Logger
}

// New validates spec (standard five-field cron or a descriptor such as
// "@every 6h") and returns a scheduler.
func New(spec string, runner Runner, notifier model.Notifier, opts reconcile.Options, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return &Scheduler{
		spec:     spec,
		schedule: schedule,
		runner:   runner,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Run starts one immediate pass, then fires on the schedule. It returns nil
// once ctx is cancelled and any in-flight pass has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug))
	c := cron.New(cron.WithLogger(cronLogger))

	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(func() {
		s.runOnce(ctx)
	}))
	c.Schedule(s.schedule, job)

	s.logger.Info("starting scheduler", "schedule", s.spec, "next", s.schedule.Next(time.Now()))
	c.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.Run()
	}()

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	wg.Wait()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := s.runner.Run(ctx, s.opts)
	if errors.Is(err, lock.ErrHeld) {
		s.logger.Info("another crawl holds the lock, skipping this tick")
		return
	}
	if err != nil {
		s.logger.Error("scheduled crawl failed", "error", err)
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), res.Summary()); err != nil {
		s.logger.Error("notification failed", "run_id", res.Run.ID, "error", err)
	}
}
