package preflight

import (
	"context"

	"appctl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the preflight checks that apply to cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("App directory", cfg.App.Dir),
		CheckCreatableDirectory("Lock directory", cfg.Paths.LockDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckManifest(cfg.ManifestPath()),
		CheckWorkingCopy(ctx, cfg.App.Dir, cfg.Upgrade.Remote),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Fallback.EnvFile != "" {
		results = append(results, CheckReadableFile("Env file", cfg.Fallback.EnvFile))
	}
	results = append(results, CheckRequiredBinaries(cfg))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
