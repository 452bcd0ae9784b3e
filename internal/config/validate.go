package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLockStore(); err != nil {
		return err
	}
	if err := c.validateSupervisor(); err != nil {
		return err
	}
	if err := c.validateFallback(); err != nil {
		return err
	}
	if err := c.validateInstaller(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLockStore() error {
	switch c.LockStore.Backend {
	case LockStoreFile, LockStoreSQLite:
		return nil
	default:
		return fmt.Errorf("lock_store.backend: unsupported value %q (expected %s or %s)", c.LockStore.Backend, LockStoreFile, LockStoreSQLite)
	}
}

func (c *Config) validateSupervisor() error {
	switch c.Supervisor.Backend {
	case SupervisorAuto, SupervisorSystemctl, SupervisorDBus, SupervisorNone:
	default:
		return fmt.Errorf("supervisor.backend: unsupported value %q", c.Supervisor.Backend)
	}
	switch c.Supervisor.Elevation {
	case ElevationAuto, ElevationSudo, ElevationNone:
	default:
		return fmt.Errorf("supervisor.elevation: unsupported value %q", c.Supervisor.Elevation)
	}
	return nil
}

func (c *Config) validateFallback() error {
	switch c.Fallback.Mode {
	case FallbackForeground, FallbackScreen:
	default:
		return fmt.Errorf("fallback.mode: unsupported value %q (expected %s or %s)", c.Fallback.Mode, FallbackForeground, FallbackScreen)
	}
	if len(c.Fallback.Command) == 0 {
		return errors.New("fallback.command must name the direct-process entry point")
	}
	if strings.ContainsAny(c.Fallback.Session, " \t/") {
		return fmt.Errorf("fallback.session %q must not contain whitespace or slashes", c.Fallback.Session)
	}
	return nil
}

func (c *Config) validateInstaller() error {
	if len(c.Installer.Command) == 0 {
		return errors.New("installer.command must not be empty")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.Interval != "" && c.Schedule.Cron != "" {
		return errors.New("schedule.interval and schedule.cron are mutually exclusive")
	}
	if c.Schedule.Interval != "" {
		d, err := c.ScheduleInterval()
		if err != nil {
			return err
		}
		if d <= 0 {
			return errors.New("schedule.interval must be positive")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
