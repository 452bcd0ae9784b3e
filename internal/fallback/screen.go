package fallback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"appctl/internal/logging"
)

func (r *Runner) screen() string {
	if r.ScreenPath == "" {
		return "screen"
	}
	return r.ScreenPath
}

// sessionExists asks screen to run a no-op in the session; it fails when the
// session is missing.
func (r *Runner) sessionExists(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, r.screen(), "-S", r.Session, "-X", "select", ".") //nolint:gosec
	return cmd.Run() == nil
}

func (r *Runner) startScreen(ctx context.Context, argv, env []string) error {
	if r.sessionExists(ctx) {
		return fmt.Errorf("%w (screen session %s)", ErrAlreadyRunning, r.Session)
	}
	args := append([]string{"-dmS", r.Session}, argv...)
	cmd := exec.CommandContext(ctx, r.screen(), args...) //nolint:gosec
	cmd.Dir = r.Dir
	cmd.Env = env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("start screen session %s: %w: %s", r.Session, err, strings.TrimSpace(stderr.String()))
	}
	logging.WithContext(ctx, r.Logger).Info("application started in screen session",
		logging.String("session", r.Session),
		logging.String("command", strings.Join(argv, " ")),
	)
	return nil
}

func (r *Runner) stopScreen(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.screen(), "-S", r.Session, "-X", "quit") //nolint:gosec
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return ErrNotRunning
		}
		return fmt.Errorf("stop screen session %s: %w", r.Session, err)
	}
	logging.WithContext(ctx, r.Logger).Info("screen session stopped", logging.String("session", r.Session))
	return nil
}
