package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"appctl/internal/fallback"
	"appctl/internal/lockstore"
	"appctl/internal/logging"
	"appctl/internal/poller"
)

var (
	// ErrUnitFailed reports that the unit entered a failed state while waiting.
	ErrUnitFailed = errors.New("unit failed to start")
	// ErrUnitTimedOut reports that the unit never became active before the deadline.
	ErrUnitTimedOut = errors.New("unit did not become active in time")
	// ErrNoRepository is returned by Upgrade when no working copy is wired.
	ErrNoRepository = errors.New("application directory is not a git repository")
)

// Dependencies wires a Controller.
type Dependencies struct {
	Store      lockstore.Store
	Detector   Detector
	Supervisor UnitCommander
	Waiter     Waiter
	Fallback   Fallback
	VCS        VersionControl
	Installer  Installer
	Gate       Gate
	Logger     *slog.Logger

	Manifest   string
	MainBranch string
	SkipWindow time.Duration
	Now        func() time.Time
}

// Controller implements start, stop, restart and upgrade. Every operation is
// safe to repeat.
type Controller struct {
	deps   Dependencies
	logger *slog.Logger
}

// New returns a Controller. Now defaults to time.Now.
func New(deps Dependencies) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "lifecycle")}
}

// StartOptions controls Start.
type StartOptions struct {
	// Args are appended to the fallback command line unchanged.
	Args []string
	// Silent skips the readiness wait.
	Silent bool
}

// StartResult describes what Start did.
type StartResult struct {
	Supervised bool
	Unit       string
	Waited     bool
	Poll       poller.Result
}

// Start records a start-skip marker, then restarts the supervised unit or
// launches the fallback.
func (c *Controller) Start(ctx context.Context, opts StartOptions) (StartResult, error) {
	return c.start(ctx, opts, true)
}

// start only records the start-skip marker for operator-initiated starts;
// a restart issued by an upgrade must not suppress the next scheduled one.
func (c *Controller) start(ctx context.Context, opts StartOptions, markSkip bool) (StartResult, error) {
	logger := logging.WithContext(ctx, c.logger)
	if markSkip {
		c.recordStartSkip(logger)
	}

	unit, supervised := c.deps.Detector.Detect(ctx)
	if !supervised {
		logger.Info("starting application directly", logging.Int("extra_args", len(opts.Args)))
		if err := c.deps.Fallback.Start(ctx, opts.Args); err != nil {
			return StartResult{}, fmt.Errorf("start application: %w", err)
		}
		return StartResult{}, nil
	}
	return c.restartUnit(ctx, logger, unit, opts.Silent)
}

// StopResult describes what Stop did.
type StopResult struct {
	Supervised bool
	Unit       string
	NotRunning bool
}

// Stop stops the supervised unit or the fallback process. A fallback that is
// not running is reported in the result, not as an error.
func (c *Controller) Stop(ctx context.Context) (StopResult, error) {
	logger := logging.WithContext(ctx, c.logger)
	unit, supervised := c.deps.Detector.Detect(ctx)
	if supervised {
		logger.Info("stopping unit", logging.String(logging.FieldUnit, unit))
		if err := c.deps.Supervisor.Stop(ctx, unit); err != nil {
			return StopResult{Supervised: true, Unit: unit}, fmt.Errorf("stop %s: %w", unit, err)
		}
		return StopResult{Supervised: true, Unit: unit}, nil
	}

	err := c.deps.Fallback.Stop(ctx)
	if errors.Is(err, fallback.ErrNotRunning) {
		logger.Info("application not running")
		return StopResult{NotRunning: true}, nil
	}
	if err != nil {
		return StopResult{}, fmt.Errorf("stop application: %w", err)
	}
	return StopResult{}, nil
}

// RestartOptions controls Restart.
type RestartOptions struct {
	Args   []string
	Silent bool
}

// Restart issues a single restart to a supervised unit, or stops and starts
// the fallback.
func (c *Controller) Restart(ctx context.Context, opts RestartOptions) (StartResult, error) {
	return c.restart(ctx, opts, true)
}

func (c *Controller) restart(ctx context.Context, opts RestartOptions, markSkip bool) (StartResult, error) {
	logger := logging.WithContext(ctx, c.logger)
	unit, supervised := c.deps.Detector.Detect(ctx)
	if supervised {
		if markSkip {
			c.recordStartSkip(logger)
		}
		return c.restartUnit(ctx, logger, unit, opts.Silent)
	}

	if _, err := c.Stop(ctx); err != nil {
		return StartResult{}, err
	}
	return c.start(ctx, StartOptions{Args: opts.Args, Silent: opts.Silent}, markSkip)
}

func (c *Controller) restartUnit(ctx context.Context, logger *slog.Logger, unit string, silent bool) (StartResult, error) {
	result := StartResult{Supervised: true, Unit: unit}
	logger.Info("restarting unit", logging.String(logging.FieldUnit, unit))
	if err := c.deps.Supervisor.Restart(ctx, unit); err != nil {
		return result, fmt.Errorf("restart %s: %w", unit, err)
	}
	if silent {
		return result, nil
	}

	res, err := c.deps.Waiter.Wait(ctx, unit)
	result.Waited = true
	result.Poll = res
	if err != nil {
		return result, fmt.Errorf("wait for %s: %w", unit, err)
	}
	switch res.State {
	case poller.Active:
		return result, nil
	case poller.Failed:
		return result, fmt.Errorf("%s: %w", unit, ErrUnitFailed)
	case poller.TimedOut:
		return result, fmt.Errorf("%s after %s: %w", unit, res.Elapsed, ErrUnitTimedOut)
	default:
		return result, fmt.Errorf("%s: unexpected poll state %q", unit, res.State)
	}
}

func (c *Controller) recordStartSkip(logger *slog.Logger) {
	if c.deps.Store == nil {
		return
	}
	if err := lockstore.RecordStartSkip(c.deps.Store, c.deps.Now()); err != nil {
		logging.WarnWithContext(logger, "start-skip marker not recorded", "marker_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the lock directory"),
			logging.String(logging.FieldImpact, "the next automatic upgrade will not be skipped"),
		)
	}
}
