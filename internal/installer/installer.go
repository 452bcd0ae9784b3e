// Package installer runs the configured dependency installation command.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"appctl/internal/config"
	"appctl/internal/logging"
)

// ErrInstallFailed wraps every installer failure.
var ErrInstallFailed = errors.New("dependency install failed")

// Command installs dependencies by running an argv template in the app
// directory. Occurrences of {manifest} are replaced with the manifest path.
type Command struct {
	Args    []string
	Dir     string
	Timeout time.Duration
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
}

// New builds a Command from configuration.
func New(cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) *Command {
	return &Command{
		Args:    append([]string(nil), cfg.Installer.Command...),
		Dir:     cfg.App.Dir,
		Timeout: cfg.InstallTimeout(),
		Stdout:  stdout,
		Stderr:  stderr,
		Logger:  logging.NewComponentLogger(logger, "installer"),
	}
}

// Argv returns the command line for manifest.
func (c *Command) Argv(manifest string) []string {
	argv := make([]string, len(c.Args))
	for i, arg := range c.Args {
		argv[i] = strings.ReplaceAll(arg, config.ManifestPlaceholder, manifest)
	}
	return argv
}

// Install runs the installer. A non-zero exit is reported as ErrInstallFailed.
func (c *Command) Install(ctx context.Context, manifest string) error {
	argv := c.Argv(manifest)
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return fmt.Errorf("%w: installer command not configured", ErrInstallFailed)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, c.Logger)
	logger.Info("installing dependencies",
		logging.String("manifest", manifest),
		logging.String("command", strings.Join(argv, " ")),
	)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec
	cmd.Dir = c.Dir
	cmd.Stdout = orDiscard(c.Stdout)
	cmd.Stderr = orDiscard(c.Stderr)
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInstallFailed, argv[0], err)
	}
	logger.Info("dependencies installed", logging.Duration("duration", time.Since(start)))
	return nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
