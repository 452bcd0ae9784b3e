package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// App describes the managed application checkout.
type App struct {
	Name     string `toml:"name"`
	Dir      string `toml:"dir"`
	Manifest string `toml:"manifest"`
}

// Paths contains directories used for coordination and logs.
type Paths struct {
	LockDir  string `toml:"lock_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// LockStore selects the marker persistence backend.
type LockStore struct {
	Backend    string `toml:"backend"`
	SQLitePath string `toml:"sqlite_path"`
}

// Supervisor contains configuration for the external process supervisor.
type Supervisor struct {
	Backend               string `toml:"backend"`
	Elevation             string `toml:"elevation"`
	SystemctlPath         string `toml:"systemctl_path"`
	JournalctlPath        string `toml:"journalctl_path"`
	SudoPath              string `toml:"sudo_path"`
	CommandTimeoutSeconds int    `toml:"command_timeout_seconds"`
	JournalLines          int    `toml:"journal_lines"`
	StatusLines           int    `toml:"status_lines"`
}

// Poller controls readiness polling after a supervised start.
type Poller struct {
	DeadlineSeconds int `toml:"deadline_seconds"`
	IntervalSeconds int `toml:"interval_seconds"`
}

// Upgrade contains configuration for the upgrade flow.
type Upgrade struct {
	Remote            string `toml:"remote"`
	MainBranch        string `toml:"main_branch"`
	SkipWindowSeconds int    `toml:"skip_window_seconds"`
}

// Installer contains the dependency installation command.
type Installer struct {
	Command        []string `toml:"command"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Fallback configures the direct-process entry point used without a supervisor.
type Fallback struct {
	Command          []string `toml:"command"`
	Mode             string   `toml:"mode"`
	Session          string   `toml:"session"`
	ScreenPath       string   `toml:"screen_path"`
	StopGraceSeconds int      `toml:"stop_grace_seconds"`
	EnvFile          string   `toml:"env_file"`
}

// Schedule configures periodic upgrades.
type Schedule struct {
	Interval string `toml:"interval"`
	Cron     string `toml:"cron"`
	Restart  bool   `toml:"restart"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for appctl.
//
// Configuration sections by subsystem:
//   - App: managed checkout and dependency manifest
//   - Paths: lock marker, state, and log directories
//   - LockStore: marker persistence backend
//   - Supervisor: systemd access and elevation
//   - Poller: readiness deadline and tick interval
//   - Upgrade: branch selection and start-skip freshness window
//   - Installer: dependency installation command
//   - Fallback: direct-process entry point
//   - Schedule: periodic upgrade cadence
//   - Logging: log format and level
type Config struct {
	App        App        `toml:"app"`
	Paths      Paths      `toml:"paths"`
	LockStore  LockStore  `toml:"lock_store"`
	Supervisor Supervisor `toml:"supervisor"`
	Poller     Poller     `toml:"poller"`
	Upgrade    Upgrade    `toml:"upgrade"`
	Installer  Installer  `toml:"installer"`
	Fallback   Fallback   `toml:"fallback"`
	Schedule   Schedule   `toml:"schedule"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the expanded per-user configuration path.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or at the first existing default
// location when path is empty, then normalizes and validates it. It also
// returns the path it settled on and whether a file was actually read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locate resolves an explicit path as given. Without one it tries the user
// config file and then appctl.toml in the working directory, reporting the
// user path as the target when neither exists.
func locate(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	userPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	localPath, err := filepath.Abs("appctl.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, localPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

// EnsureDirectories creates the state directory. The lock directory is created
// lazily by the lock store on first write.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log directory %q: %w", c.Paths.LogDir, err)
		}
	}
	return nil
}

// ManifestPath returns the absolute dependency manifest path.
func (c *Config) ManifestPath() string {
	if filepath.IsAbs(c.App.Manifest) {
		return c.App.Manifest
	}
	return filepath.Join(c.App.Dir, c.App.Manifest)
}

// PIDPath returns the pid file written by the foreground fallback.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "app.pid")
}

// SchedulerLockPath returns the single-instance lock held by the scheduler.
func (c *Config) SchedulerLockPath() string {
	return filepath.Join(c.Paths.StateDir, "scheduler.lock")
}

// PollDeadline returns the readiness poll deadline.
func (c *Config) PollDeadline() time.Duration {
	return time.Duration(c.Poller.DeadlineSeconds) * time.Second
}

// PollInterval returns the delay between readiness samples.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poller.IntervalSeconds) * time.Second
}

// SkipWindow returns how long a recorded manual start suppresses an automatic upgrade.
func (c *Config) SkipWindow() time.Duration {
	return time.Duration(c.Upgrade.SkipWindowSeconds) * time.Second
}

// SupervisorTimeout returns the per-command timeout for supervisor calls.
func (c *Config) SupervisorTimeout() time.Duration {
	return time.Duration(c.Supervisor.CommandTimeoutSeconds) * time.Second
}

// InstallTimeout returns the installer timeout, zero meaning unbounded.
func (c *Config) InstallTimeout() time.Duration {
	return time.Duration(c.Installer.TimeoutSeconds) * time.Second
}

// StopGrace returns how long the fallback waits after SIGTERM before SIGKILL.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Fallback.StopGraceSeconds) * time.Second
}

// ScheduleInterval parses the configured upgrade interval.
func (c *Config) ScheduleInterval() (time.Duration, error) {
	value := strings.TrimSpace(c.Schedule.Interval)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("schedule.interval: %w", err)
	}
	return d, nil
}

// expandPath turns "~" and "~/x" into home-relative paths and makes the
// result absolute. Empty input stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value[1:], "/"))
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// ExpandPath is the exported form of the path expansion applied to every
// configured path.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
