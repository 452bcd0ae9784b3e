package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofrs/flock"

	"appctl/internal/logging"
)

// ErrAlreadyRunning is returned when another scheduler holds the lock.
var ErrAlreadyRunning = errors.New("another appctl scheduler is already running")

// Job is one scheduled run. Errors are logged and do not stop the schedule.
type Job func(ctx context.Context) error

// Options configures a Scheduler. Exactly one of Interval and Cron is set.
type Options struct {
	Interval time.Duration
	Cron     string
	// Immediate runs the job once as soon as the scheduler starts.
	Immediate bool
	LockPath  string
	Logger    *slog.Logger
}

// Scheduler runs a Job on a fixed cadence while holding a single-instance lock.
type Scheduler struct {
	opts   Options
	run    Job
	logger *slog.Logger
	lock   *flock.Flock

	sched   gocron.Scheduler
	job     gocron.Job
	running atomic.Bool
}

// New validates opts and returns a stopped Scheduler.
func New(opts Options, run Job) (*Scheduler, error) {
	if run == nil {
		return nil, errors.New("scheduler requires a job")
	}
	opts.Cron = strings.TrimSpace(opts.Cron)
	switch {
	case opts.Interval > 0 && opts.Cron != "":
		return nil, errors.New("interval and cron are mutually exclusive")
	case opts.Interval <= 0 && opts.Cron == "":
		return nil, errors.New("no schedule configured: set an interval or a cron expression")
	}
	if strings.TrimSpace(opts.LockPath) == "" {
		return nil, errors.New("scheduler lock path is required")
	}
	return &Scheduler{
		opts:   opts,
		run:    run,
		logger: logging.NewComponentLogger(opts.Logger, "scheduler"),
		lock:   flock.New(opts.LockPath),
	}, nil
}

// Start acquires the lock and begins scheduling. Jobs receive a context
// derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("scheduler already started")
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("create scheduler: %w", err)
	}

	jobOpts := []gocron.JobOption{
		gocron.WithName("upgrade"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if s.opts.Immediate {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	job, err := sched.NewJob(s.definition(), gocron.NewTask(func() { s.execute(ctx) }), jobOpts...)
	if err != nil {
		_ = sched.Shutdown()
		_ = s.lock.Unlock()
		return fmt.Errorf("schedule upgrade job: %w", err)
	}

	s.sched = sched
	s.job = job
	sched.Start()
	s.running.Store(true)

	attrs := []logging.Attr{logging.String("lock", s.opts.LockPath)}
	if next, err := job.NextRun(); err == nil && !next.IsZero() {
		attrs = append(attrs, logging.String("next_run", next.UTC().Format(time.RFC3339)))
	}
	s.logger.Info("scheduler started", logging.Args(attrs...)...)
	return nil
}

// NextRun reports when the job fires next.
func (s *Scheduler) NextRun() (time.Time, error) {
	if !s.running.Load() || s.job == nil {
		return time.Time{}, errors.New("scheduler not started")
	}
	return s.job.NextRun()
}

// Stop shuts the scheduler down, waiting for a running job, and releases the lock.
func (s *Scheduler) Stop() error {
	if !s.running.Load() {
		return nil
	}
	var errs []error
	if err := s.sched.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("shutdown scheduler: %w", err))
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	s.running.Store(false)
	s.logger.Info("scheduler stopped")
	return errors.Join(errs...)
}

func (s *Scheduler) definition() gocron.JobDefinition {
	if s.opts.Cron != "" {
		return gocron.CronJob(s.opts.Cron, false)
	}
	return gocron.DurationJob(s.opts.Interval)
}

func (s *Scheduler) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, _ := logging.NewInvocation(ctx)
	logger := logging.WithContext(runCtx, s.logger)
	started := time.Now()
	logger.Info("scheduled upgrade started")
	if err := s.run(runCtx); err != nil {
		logging.ErrorWithContext(logger, "scheduled upgrade failed", "scheduled_upgrade_failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorHint, "run appctl upgrade manually to see the full output"),
		)
		return
	}
	logger.Info("scheduled upgrade finished", logging.Duration("elapsed", time.Since(started)))
}
