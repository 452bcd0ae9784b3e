package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"appctl/internal/lockstore"
	"appctl/internal/logging"
)

// UpgradeOptions controls Upgrade.
type UpgradeOptions struct {
	// Branch switches to the named branch before pulling.
	Branch string
	// Main switches to the configured main branch.
	Main bool
	// Auto marks a scheduled run, which honours a fresh start-skip marker.
	Auto bool
	// Restart restarts the application after dependencies are settled.
	Restart bool
}

// UpgradeResult describes what Upgrade did.
type UpgradeResult struct {
	SkippedByMarker bool
	Branch          string
	Switched        bool
	CreatedTracking bool
	BranchMissing   bool
	Updated         bool
	Installed       bool
	InstallSkipped  bool
	Restarted       bool
	Restart         StartResult
}

// Upgrade optionally switches branch, pulls, installs dependencies when the
// manifest changed and optionally restarts. A missing branch is a warning; a
// failed pull or install is fatal.
func (c *Controller) Upgrade(ctx context.Context, opts UpgradeOptions) (UpgradeResult, error) {
	logger := logging.WithContext(ctx, c.logger)
	var result UpgradeResult

	if opts.Auto && c.deps.Store != nil {
		skip, err := lockstore.ConsumeStartSkip(c.deps.Store, c.deps.Now(), c.deps.SkipWindow)
		if err != nil {
			logging.WarnWithContext(logger, "start-skip marker unreadable", "marker_read_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "upgrading without honouring a recent manual start"),
			)
		}
		if skip {
			logger.Info("recent manual start; skipping automatic upgrade",
				logging.Duration("window", c.deps.SkipWindow))
			result.SkippedByMarker = true
			return result, nil
		}
	}

	if c.deps.VCS == nil {
		return result, ErrNoRepository
	}

	target := strings.TrimSpace(opts.Branch)
	if opts.Main {
		target = c.deps.MainBranch
	}
	if target != "" {
		if err := c.selectBranch(ctx, logger, target, &result); err != nil {
			return result, err
		}
	}
	current, err := c.deps.VCS.CurrentBranch(ctx)
	if err != nil {
		return result, fmt.Errorf("determine current branch: %w", err)
	}
	result.Branch = current

	if err := c.deps.VCS.Fetch(ctx); err != nil {
		return result, fmt.Errorf("fetch: %w", err)
	}
	updated, err := c.deps.VCS.Pull(ctx)
	if err != nil {
		return result, fmt.Errorf("pull: %w", err)
	}
	result.Updated = updated
	logger.Info("working copy updated", logging.String("branch", current), logging.Bool("changed", updated))

	needs, err := c.deps.Gate.NeedsInstall(c.deps.Manifest)
	if err != nil {
		return result, fmt.Errorf("check dependencies: %w", err)
	}
	if needs {
		if err := c.deps.Installer.Install(ctx, c.deps.Manifest); err != nil {
			return result, fmt.Errorf("install dependencies: %w", err)
		}
		if err := c.deps.Gate.RecordInstalled(c.deps.Manifest); err != nil {
			return result, fmt.Errorf("record dependency fingerprint: %w", err)
		}
		result.Installed = true
	} else {
		logger.Info("dependencies unchanged, skipping install", logging.String("manifest", c.deps.Manifest))
		result.InstallSkipped = true
	}

	if opts.Restart {
		restart, err := c.restart(ctx, RestartOptions{}, false)
		result.Restart = restart
		if err != nil {
			return result, err
		}
		result.Restarted = true
	}
	return result, nil
}

func (c *Controller) selectBranch(ctx context.Context, logger *slog.Logger, target string, result *UpgradeResult) error {
	vcs := c.deps.VCS
	if current, err := vcs.CurrentBranch(ctx); err == nil && current == target {
		return nil
	}

	local, err := vcs.LocalBranchExists(ctx, target)
	if err != nil {
		return fmt.Errorf("look up branch %s: %w", target, err)
	}
	if local {
		if err := vcs.Switch(ctx, target); err != nil {
			return fmt.Errorf("switch to %s: %w", target, err)
		}
		logger.Info("switched branch", logging.String("branch", target))
		result.Switched = true
		return nil
	}

	remote, err := vcs.RemoteBranchExists(ctx, target)
	if err != nil {
		return fmt.Errorf("look up remote branch %s: %w", target, err)
	}
	if remote {
		if err := vcs.CreateTrackingBranch(ctx, target); err != nil {
			return fmt.Errorf("create tracking branch %s: %w", target, err)
		}
		logger.Info("created tracking branch", logging.String("branch", target))
		result.Switched = true
		result.CreatedTracking = true
		return nil
	}

	logging.WarnWithContext(logger, "requested branch not found; staying on current branch", "branch_not_found",
		logging.String("branch", target),
		logging.String(logging.FieldErrorHint, "check the branch name or push it to the remote"),
		logging.String(logging.FieldImpact, "upgrade continues on the current branch"),
	)
	result.BranchMissing = true
	return nil
}
