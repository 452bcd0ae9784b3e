package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeApp()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLockStore()
	c.normalizeSupervisor()
	c.normalizePoller()
	c.normalizeUpgrade()
	c.normalizeInstaller()
	if err := c.normalizeFallback(); err != nil {
		return err
	}
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeApp() {
	c.App.Name = strings.TrimSpace(c.App.Name)
	if c.App.Name == "" {
		c.App.Name = defaultAppName
	}
	c.App.Manifest = strings.TrimSpace(c.App.Manifest)
	if c.App.Manifest == "" {
		c.App.Manifest = defaultManifest
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.App.Dir) == "" {
		c.App.Dir = defaultAppDir
	}
	if c.App.Dir, err = expandPath(strings.TrimSpace(c.App.Dir)); err != nil {
		return fmt.Errorf("app.dir: %w", err)
	}
	if strings.HasPrefix(c.App.Manifest, "~") {
		if c.App.Manifest, err = expandPath(c.App.Manifest); err != nil {
			return fmt.Errorf("app.manifest: %w", err)
		}
	}

	lockDir := strings.TrimSpace(c.Paths.LockDir)
	if lockDir == "" {
		lockDir = filepath.Join(c.App.Dir, defaultLockDirName)
	}
	if c.Paths.LockDir, err = expandPath(lockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}

	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}

	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
			return fmt.Errorf("paths.log_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLockStore() {
	c.LockStore.Backend = strings.ToLower(strings.TrimSpace(c.LockStore.Backend))
	if c.LockStore.Backend == "" {
		c.LockStore.Backend = defaultLockStoreBackend
	}
	c.LockStore.SQLitePath = strings.TrimSpace(c.LockStore.SQLitePath)
	if c.LockStore.SQLitePath == "" {
		c.LockStore.SQLitePath = filepath.Join(c.Paths.StateDir, "markers.db")
	} else if expanded, err := expandPath(c.LockStore.SQLitePath); err == nil {
		c.LockStore.SQLitePath = expanded
	}
}

func (c *Config) normalizeSupervisor() {
	c.Supervisor.Backend = strings.ToLower(strings.TrimSpace(c.Supervisor.Backend))
	if c.Supervisor.Backend == "" {
		c.Supervisor.Backend = defaultSupervisorBackend
	}
	c.Supervisor.Elevation = strings.ToLower(strings.TrimSpace(c.Supervisor.Elevation))
	if c.Supervisor.Elevation == "" {
		c.Supervisor.Elevation = defaultElevation
	}
	c.Supervisor.SystemctlPath = defaultString(c.Supervisor.SystemctlPath, defaultSystemctlPath)
	c.Supervisor.JournalctlPath = defaultString(c.Supervisor.JournalctlPath, defaultJournalctlPath)
	c.Supervisor.SudoPath = defaultString(c.Supervisor.SudoPath, defaultSudoPath)
	if c.Supervisor.CommandTimeoutSeconds <= 0 {
		c.Supervisor.CommandTimeoutSeconds = defaultCommandTimeoutSeconds
	}
	if c.Supervisor.JournalLines <= 0 {
		c.Supervisor.JournalLines = defaultJournalLines
	}
	if c.Supervisor.StatusLines <= 0 {
		c.Supervisor.StatusLines = defaultStatusLines
	}
}

func (c *Config) normalizePoller() {
	if c.Poller.DeadlineSeconds <= 0 {
		c.Poller.DeadlineSeconds = defaultPollDeadlineSeconds
	}
	if c.Poller.IntervalSeconds <= 0 {
		c.Poller.IntervalSeconds = defaultPollIntervalSeconds
	}
}

func (c *Config) normalizeUpgrade() {
	c.Upgrade.Remote = defaultString(c.Upgrade.Remote, defaultRemote)
	c.Upgrade.MainBranch = defaultString(c.Upgrade.MainBranch, defaultMainBranch)
	if c.Upgrade.SkipWindowSeconds <= 0 {
		c.Upgrade.SkipWindowSeconds = defaultSkipWindowSeconds
	}
}

func (c *Config) normalizeInstaller() {
	c.Installer.Command = trimArgs(c.Installer.Command)
	if c.Installer.TimeoutSeconds < 0 {
		c.Installer.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeFallback() error {
	c.Fallback.Command = trimArgs(c.Fallback.Command)
	c.Fallback.Mode = strings.ToLower(strings.TrimSpace(c.Fallback.Mode))
	if c.Fallback.Mode == "" {
		c.Fallback.Mode = defaultFallbackMode
	}
	c.Fallback.Session = defaultString(c.Fallback.Session, c.App.Name)
	c.Fallback.ScreenPath = defaultString(c.Fallback.ScreenPath, defaultScreenPath)
	if c.Fallback.StopGraceSeconds <= 0 {
		c.Fallback.StopGraceSeconds = defaultFallbackStopGraceSecond
	}
	envFile := strings.TrimSpace(c.Fallback.EnvFile)
	if envFile != "" {
		if !filepath.IsAbs(envFile) && !strings.HasPrefix(envFile, "~") {
			envFile = filepath.Join(c.App.Dir, envFile)
		}
		expanded, err := expandPath(envFile)
		if err != nil {
			return fmt.Errorf("fallback.env_file: %w", err)
		}
		envFile = expanded
	}
	c.Fallback.EnvFile = envFile
	return nil
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Interval = strings.TrimSpace(c.Schedule.Interval)
	c.Schedule.Cron = strings.TrimSpace(c.Schedule.Cron)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func trimArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
