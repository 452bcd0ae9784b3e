package lifecycle

import (
	"context"

	"appctl/internal/poller"
)

// Detector resolves the supervised unit, if any.
type Detector interface {
	Detect(ctx context.Context) (string, bool)
}

// UnitCommander issues lifecycle verbs to the supervisor.
type UnitCommander interface {
	Restart(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
}

// VersionControl is the subset of git operations an upgrade performs.
type VersionControl interface {
	CurrentBranch(ctx context.Context) (string, error)
	LocalBranchExists(ctx context.Context, name string) (bool, error)
	RemoteBranchExists(ctx context.Context, name string) (bool, error)
	Switch(ctx context.Context, name string) error
	CreateTrackingBranch(ctx context.Context, name string) error
	Fetch(ctx context.Context) error
	Pull(ctx context.Context) (bool, error)
}

// Installer installs the dependencies listed in a manifest.
type Installer interface {
	Install(ctx context.Context, manifest string) error
}

// Gate decides whether the manifest changed since the last install.
type Gate interface {
	NeedsInstall(manifest string) (bool, error)
	RecordInstalled(manifest string) error
}

// Fallback runs the application without a supervisor.
type Fallback interface {
	Start(ctx context.Context, args []string) error
	Stop(ctx context.Context) error
}

// Waiter blocks until a unit reaches a terminal readiness state.
type Waiter interface {
	Wait(ctx context.Context, unit string) (poller.Result, error)
}
