package supervisor

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"appctl/internal/config"
)

var geteuid = unix.Geteuid

// ResolveElevation returns the argv prefix used for mutating supervisor
// commands. In auto mode root needs nothing, passwordless sudo gets
// "sudo -n", and everyone else runs unprivileged.
func ResolveElevation(ctx context.Context, mode, sudoPath string, run Runner) ([]string, error) {
	if run == nil {
		run = execRunner
	}
	if sudoPath == "" {
		sudoPath = "sudo"
	}
	switch mode {
	case config.ElevationNone:
		return nil, nil
	case config.ElevationSudo:
		return []string{sudoPath, "-n"}, nil
	case config.ElevationAuto, "":
		if geteuid() == 0 {
			return nil, nil
		}
		if _, _, err := run(ctx, sudoPath, "-n", "true"); err != nil {
			return nil, nil
		}
		return []string{sudoPath, "-n"}, nil
	default:
		return nil, fmt.Errorf("supervisor: unsupported elevation %q", mode)
	}
}
