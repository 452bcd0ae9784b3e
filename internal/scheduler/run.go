package scheduler

import (
	"context"
	"os/signal"
	"syscall"
)

// Run starts a scheduler and blocks until ctx is cancelled or the process
// receives SIGINT or SIGTERM.
func Run(ctx context.Context, opts Options, job Job) error {
	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := New(opts, job)
	if err != nil {
		return err
	}
	if err := s.Start(signalCtx); err != nil {
		return err
	}
	<-signalCtx.Done()
	s.logger.Info("scheduler shutting down")
	return s.Stop()
}
