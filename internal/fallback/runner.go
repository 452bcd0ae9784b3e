package fallback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sys/unix"

	"appctl/internal/config"
	"appctl/internal/fileutil"
	"appctl/internal/lockstore"
	"appctl/internal/logging"
)

var (
	// ErrNotRunning reports that no directly started process was found.
	ErrNotRunning = errors.New("application not running")
	// ErrAlreadyRunning reports a live pid file or screen session.
	ErrAlreadyRunning = errors.New("application already running")
)

const stopPollInterval = 100 * time.Millisecond

// Runner starts and stops the application without a supervisor, either
// attached to the terminal or inside a detached screen session.
type Runner struct {
	Command    []string
	Dir        string
	Mode       string
	Session    string
	ScreenPath string
	PIDPath    string
	EnvFile    string
	StopGrace  time.Duration
	Store      lockstore.Store

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// New builds a Runner from configuration.
func New(cfg *config.Config, store lockstore.Store, stdout, stderr io.Writer, logger *slog.Logger) *Runner {
	return &Runner{
		Command:    append([]string(nil), cfg.Fallback.Command...),
		Dir:        cfg.App.Dir,
		Mode:       cfg.Fallback.Mode,
		Session:    cfg.Fallback.Session,
		ScreenPath: cfg.Fallback.ScreenPath,
		PIDPath:    cfg.PIDPath(),
		EnvFile:    cfg.Fallback.EnvFile,
		StopGrace:  cfg.StopGrace(),
		Store:      store,
		Stdin:      os.Stdin,
		Stdout:     stdout,
		Stderr:     stderr,
		Logger:     logging.NewComponentLogger(logger, "fallback"),
	}
}

// ScreenMode reports whether the screen session strategy is selected, either
// by configuration or by the screen-mode marker.
func (r *Runner) ScreenMode() bool {
	if r.Mode == config.FallbackScreen {
		return true
	}
	if r.Store == nil {
		return false
	}
	present, err := r.Store.Exists(lockstore.MarkerScreenMode)
	if err != nil {
		r.Logger.Debug("screen-mode marker unreadable", logging.Error(err))
		return false
	}
	return present
}

// Start runs the entry point with args appended. In foreground mode it blocks
// until the process exits.
func (r *Runner) Start(ctx context.Context, args []string) error {
	if len(r.Command) == 0 || strings.TrimSpace(r.Command[0]) == "" {
		return errors.New("fallback command not configured")
	}
	env, err := r.environment()
	if err != nil {
		return err
	}
	argv := append(append([]string(nil), r.Command...), args...)
	if r.ScreenMode() {
		return r.startScreen(ctx, argv, env)
	}
	return r.startForeground(ctx, argv, env)
}

// Stop terminates whatever Start launched.
func (r *Runner) Stop(ctx context.Context) error {
	if r.ScreenMode() {
		return r.stopScreen(ctx)
	}
	return r.stopForeground(ctx)
}

// Running reports the pid of a live foreground process, if any.
func (r *Runner) Running() (int, bool) {
	pid, err := readPID(r.PIDPath)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, processAlive(pid)
}

func (r *Runner) environment() ([]string, error) {
	env := os.Environ()
	if strings.TrimSpace(r.EnvFile) == "" {
		return env, nil
	}
	values, err := godotenv.Read(r.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("load env file %s: %w", r.EnvFile, err)
	}
	for key, value := range values {
		env = append(env, key+"="+value)
	}
	return env, nil
}

func (r *Runner) startForeground(ctx context.Context, argv, env []string) error {
	logger := logging.WithContext(ctx, r.Logger)
	if pid, alive := r.Running(); alive {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec
	cmd.Dir = r.Dir
	cmd.Env = env
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = r.grace()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	pid := cmd.Process.Pid
	if err := fileutil.WriteFileAtomic(r.PIDPath, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		logging.WarnWithContext(logger, "pid file not written", "pid_file_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "'appctl stop' will not find the process"),
		)
	}
	logger.Info("application started in foreground",
		logging.Int("pid", pid),
		logging.String("command", strings.Join(argv, " ")),
	)

	waitErr := cmd.Wait()
	if current, err := readPID(r.PIDPath); err == nil && current == pid {
		_ = fileutil.RemoveIfExists(r.PIDPath)
	}
	if waitErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("application exited: %w", waitErr)
	}
	logger.Info("application exited", logging.Int("pid", pid))
	return nil
}

func (r *Runner) stopForeground(ctx context.Context) error {
	logger := logging.WithContext(ctx, r.Logger)
	pid, err := readPID(r.PIDPath)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotRunning
	}
	if err != nil {
		return err
	}
	if pid <= 0 {
		_ = fileutil.RemoveIfExists(r.PIDPath)
		return ErrNotRunning
	}
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	if !processAlive(pid) {
		_ = fileutil.RemoveIfExists(r.PIDPath)
		return ErrNotRunning
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	logger.Info("sent SIGTERM", logging.Int("pid", pid), logging.Duration("grace", r.grace()))

	deadline := time.Now().Add(r.grace())
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = fileutil.RemoveIfExists(r.PIDPath)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(stopPollInterval):
		}
	}

	logging.WarnWithContext(logger, "application ignored SIGTERM; killing", "stop_forced",
		logging.Int("pid", pid),
		logging.String(logging.FieldImpact, "process terminated without cleanup"),
		logging.String(logging.FieldErrorHint, "raise fallback.stop_grace_seconds if shutdown is slow"),
	)
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	_ = fileutil.RemoveIfExists(r.PIDPath)
	return nil
}

func (r *Runner) grace() time.Duration {
	if r.StopGrace <= 0 {
		return 10 * time.Second
	}
	return r.StopGrace
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
