package scheduler_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"appctl/internal/logging"
	"appctl/internal/scheduler"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "scheduler.lock")
}

func TestNewValidatesCadence(t *testing.T) {
	noop := func(context.Context) error { return nil }
	cases := map[string]scheduler.Options{
		"neither": {LockPath: "/tmp/x.lock"},
		"both":    {Interval: time.Hour, Cron: "0 4 * * *", LockPath: "/tmp/x.lock"},
		"no lock": {Interval: time.Hour},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := scheduler.New(opts, noop); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
	if _, err := scheduler.New(scheduler.Options{Interval: time.Hour, LockPath: "/tmp/x.lock"}, nil); err == nil {
		t.Fatal("expected error for nil job")
	}
}

func TestIntervalJobRunsRepeatedlyDespiteErrors(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{})
	job := func(ctx context.Context) error {
		if _, ok := logging.InvocationIDFromContext(ctx); !ok {
			t.Error("expected invocation id on job context")
		}
		if runs.Add(1) == 2 {
			close(done)
		}
		return errors.New("upgrade failed")
	}

	s, err := scheduler.New(scheduler.Options{
		Interval:  50 * time.Millisecond,
		Immediate: true,
		LockPath:  lockPath(t),
		Logger:    logging.NewNop(),
	}, job)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("job ran %d times, want at least 2", runs.Load())
	}
	if _, err := s.NextRun(); err != nil {
		t.Fatalf("NextRun: %v", err)
	}
}

func TestSecondSchedulerIsRejected(t *testing.T) {
	path := lockPath(t)
	noop := func(context.Context) error { return nil }
	opts := scheduler.Options{Interval: time.Hour, LockPath: path}

	first, err := scheduler.New(opts, noop)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start first: %v", err)
	}

	second, err := scheduler.New(opts, noop)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, scheduler.ErrAlreadyRunning) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}

	if err := first.Stop(); err != nil {
		t.Fatalf("Stop first: %v", err)
	}
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	if err := second.Stop(); err != nil {
		t.Fatalf("Stop second: %v", err)
	}
}

func TestInvalidCronReleasesLock(t *testing.T) {
	path := lockPath(t)
	noop := func(context.Context) error { return nil }

	bad, err := scheduler.New(scheduler.Options{Cron: "not a cron", LockPath: path}, noop)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := bad.Start(context.Background()); err == nil {
		t.Fatal("expected invalid cron expression to fail")
	}

	good, err := scheduler.New(scheduler.Options{Cron: "0 4 * * *", LockPath: path}, noop)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := good.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	next, err := good.NextRun()
	if err != nil || next.IsZero() {
		t.Fatalf("NextRun = %v, %v", next, err)
	}
	if err := good.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- scheduler.Run(ctx, scheduler.Options{Interval: time.Hour, LockPath: lockPath(t)},
			func(context.Context) error { return nil })
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
