package poller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/looplab/fsm"

	"appctl/internal/logging"
	"appctl/internal/supervisor"
)

// State is a readiness outcome.
type State string

const (
	Waiting  State = "waiting"
	Active   State = "active"
	Failed   State = "failed"
	TimedOut State = "timed_out"
)

const (
	eventActivate = "activate"
	eventFail     = "fail"
	eventExpire   = "expire"
)

const (
	DefaultDeadline = 120 * time.Second
	DefaultInterval = 2 * time.Second
)

// Clock is the time source the poller sleeps on.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SampleFunc observes the unit once.
type SampleFunc func(ctx context.Context) (supervisor.Sample, error)

// DiagnoseFunc gathers failure diagnostics for the unit.
type DiagnoseFunc func(ctx context.Context) (supervisor.Diagnostics, error)

// Result describes how a wait ended.
type Result struct {
	State   State
	Ticks   int
	Last    supervisor.Sample
	Elapsed time.Duration
}

// Poller waits for one unit to reach a terminal state.
type Poller struct {
	Unit     string
	Deadline time.Duration
	Interval time.Duration
	Clock    Clock
	Sample   SampleFunc
	Diagnose DiagnoseFunc
	Logger   *slog.Logger
	// Out receives the confirmation and diagnostics meant for the operator.
	Out io.Writer
}

// Wait samples until the unit is active, failed, or the deadline passes.
// Diagnostics are written once when the outcome is failed or timed out.
func (p *Poller) Wait(ctx context.Context) (Result, error) {
	if p.Sample == nil {
		return Result{}, fmt.Errorf("poller: no sampler configured")
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	deadline := p.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	out := p.Out
	if out == nil {
		out = io.Discard
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(p.Logger, "poller"))
	if p.Unit != "" {
		logger = logger.With(logging.String(logging.FieldUnit, p.Unit))
	}

	machine := p.newMachine(ctx, logger, out)
	start := clock.Now()
	result := Result{State: Waiting}
	previous := ""

	for {
		if err := ctx.Err(); err != nil {
			result.Elapsed = clock.Now().Sub(start)
			return result, err
		}

		sample, err := p.Sample(ctx)
		if err != nil {
			logger.Debug("unit state query failed", logging.Error(err))
			sample = supervisor.UnknownSample()
		}
		result.Ticks++
		result.Last = sample
		result.Elapsed = clock.Now().Sub(start)

		if summary := sample.Summary(); summary != previous {
			logger.Info("unit state",
				logging.String("active", sample.Active),
				logging.String("sub", sample.Sub),
				logging.String("result", sample.Result),
				logging.Duration("elapsed", result.Elapsed),
			)
			previous = summary
		}

		var event string
		switch {
		case sample.Active == "active":
			event = eventActivate
		case sample.Active == "failed" || sample.Result == "failed":
			event = eventFail
		case result.Elapsed >= deadline:
			event = eventExpire
		}
		if event != "" {
			if err := machine.Event(ctx, event, result); err != nil {
				return result, fmt.Errorf("poller transition %s: %w", event, err)
			}
			result.State = State(machine.Current())
			return result, nil
		}

		clock.Sleep(interval)
	}
}

func (p *Poller) newMachine(ctx context.Context, logger *slog.Logger, out io.Writer) *fsm.FSM {
	diagnose := func(e *fsm.Event) {
		res, _ := e.Args[0].(Result)
		p.writeDiagnostics(ctx, logger, out, State(e.Dst), res)
	}
	return fsm.NewFSM(
		string(Waiting),
		fsm.Events{
			{Name: eventActivate, Src: []string{string(Waiting)}, Dst: string(Active)},
			{Name: eventFail, Src: []string{string(Waiting)}, Dst: string(Failed)},
			{Name: eventExpire, Src: []string{string(Waiting)}, Dst: string(TimedOut)},
		},
		fsm.Callbacks{
			"enter_" + string(Active): func(_ context.Context, e *fsm.Event) {
				res, _ := e.Args[0].(Result)
				logger.Info("unit active",
					logging.String("state", res.Last.Summary()),
					logging.Int("ticks", res.Ticks),
					logging.Duration("elapsed", res.Elapsed),
				)
				fmt.Fprintf(out, "%s is active (%s)\n", p.unitLabel(), res.Last.Summary())
			},
			"enter_" + string(Failed): func(_ context.Context, e *fsm.Event) {
				diagnose(e)
			},
			"enter_" + string(TimedOut): func(_ context.Context, e *fsm.Event) {
				diagnose(e)
			},
		},
	)
}

func (p *Poller) writeDiagnostics(ctx context.Context, logger *slog.Logger, out io.Writer, state State, res Result) {
	msg := "unit failed"
	hint := "inspect the journal lines below"
	if state == TimedOut {
		msg = "unit did not become active before the deadline"
		hint = "raise poller.deadline_seconds if the unit starts slowly"
	}
	logging.ErrorWithContext(logger, msg, "unit_"+string(state),
		logging.String("state", res.Last.Summary()),
		logging.Int("ticks", res.Ticks),
		logging.Duration("elapsed", res.Elapsed),
		logging.String(logging.FieldErrorHint, hint),
	)

	fmt.Fprintf(out, "%s %s after %s (last state %s)\n", p.unitLabel(), describe(state), res.Elapsed.Round(time.Second), res.Last.Summary())
	if p.Diagnose == nil {
		return
	}
	diag, err := p.Diagnose(ctx)
	if err != nil {
		logger.Warn("diagnostics unavailable", logging.Error(err))
	}
	if len(diag.Status) > 0 {
		fmt.Fprintln(out, "--- status ---")
		for _, line := range diag.Status {
			fmt.Fprintln(out, line)
		}
	}
	if len(diag.Journal) > 0 {
		fmt.Fprintln(out, "--- recent log ---")
		for _, line := range diag.Journal {
			fmt.Fprintln(out, line)
		}
	}
}

func (p *Poller) unitLabel() string {
	if p.Unit == "" {
		return "unit"
	}
	return p.Unit
}

func describe(state State) string {
	if state == TimedOut {
		return "timed out"
	}
	return string(state)
}
