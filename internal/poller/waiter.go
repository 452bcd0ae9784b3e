package poller

import (
	"context"
	"io"
	"log/slog"
	"time"

	"appctl/internal/config"
	"appctl/internal/supervisor"
)

// UnitWaiter builds a Poller per unit against a supervisor.
type UnitWaiter struct {
	Supervisor supervisor.UnitSupervisor
	Deadline   time.Duration
	Interval   time.Duration
	Clock      Clock
	Logger     *slog.Logger
	Out        io.Writer
}

// NewUnitWaiter reads deadline and interval from configuration.
func NewUnitWaiter(cfg *config.Config, sup supervisor.UnitSupervisor, logger *slog.Logger, out io.Writer) *UnitWaiter {
	return &UnitWaiter{
		Supervisor: sup,
		Deadline:   cfg.PollDeadline(),
		Interval:   cfg.PollInterval(),
		Logger:     logger,
		Out:        out,
	}
}

// Wait polls unit until it reaches a terminal state.
func (w *UnitWaiter) Wait(ctx context.Context, unit string) (Result, error) {
	p := &Poller{
		Unit:     unit,
		Deadline: w.Deadline,
		Interval: w.Interval,
		Clock:    w.Clock,
		Logger:   w.Logger,
		Out:      w.Out,
		Sample: func(ctx context.Context) (supervisor.Sample, error) {
			return w.Supervisor.State(ctx, unit)
		},
		Diagnose: func(ctx context.Context) (supervisor.Diagnostics, error) {
			return w.Supervisor.Diagnostics(ctx, unit)
		},
	}
	return p.Wait(ctx)
}
