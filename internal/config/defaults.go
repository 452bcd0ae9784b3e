package config

const (
	defaultConfigPath              = "~/.config/appctl/config.toml"
	defaultAppName                 = "app"
	defaultAppDir                  = "."
	defaultManifest                = "requirements.txt"
	defaultLockDirName             = ".locks"
	defaultStateDir                = "~/.local/state/appctl"
	defaultLockStoreBackend        = LockStoreFile
	defaultSupervisorBackend       = SupervisorAuto
	defaultElevation               = ElevationAuto
	defaultSystemctlPath           = "systemctl"
	defaultJournalctlPath          = "journalctl"
	defaultSudoPath                = "sudo"
	defaultCommandTimeoutSeconds   = 30
	defaultJournalLines            = 30
	defaultStatusLines             = 10
	defaultPollDeadlineSeconds     = 120
	defaultPollIntervalSeconds     = 2
	defaultRemote                  = "origin"
	defaultMainBranch              = "main"
	defaultSkipWindowSeconds       = 600
	defaultFallbackMode            = FallbackForeground
	defaultScreenPath              = "screen"
	defaultFallbackStopGraceSecond = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Backend and mode identifiers accepted in configuration.
const (
	LockStoreFile   = "file"
	LockStoreSQLite = "sqlite"

	SupervisorAuto      = "auto"
	SupervisorSystemctl = "systemctl"
	SupervisorDBus      = "dbus"
	SupervisorNone      = "none"

	ElevationAuto = "auto"
	ElevationSudo = "sudo"
	ElevationNone = "none"

	FallbackForeground = "foreground"
	FallbackScreen     = "screen"
)

// ManifestPlaceholder is replaced by the manifest path in installer arguments.
const ManifestPlaceholder = "{manifest}"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		App: App{
			Name:     defaultAppName,
			Dir:      defaultAppDir,
			Manifest: defaultManifest,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		LockStore: LockStore{
			Backend: defaultLockStoreBackend,
		},
		Supervisor: Supervisor{
			Backend:               defaultSupervisorBackend,
			Elevation:             defaultElevation,
			SystemctlPath:         defaultSystemctlPath,
			JournalctlPath:        defaultJournalctlPath,
			SudoPath:              defaultSudoPath,
			CommandTimeoutSeconds: defaultCommandTimeoutSeconds,
			JournalLines:          defaultJournalLines,
			StatusLines:           defaultStatusLines,
		},
		Poller: Poller{
			DeadlineSeconds: defaultPollDeadlineSeconds,
			IntervalSeconds: defaultPollIntervalSeconds,
		},
		Upgrade: Upgrade{
			Remote:            defaultRemote,
			MainBranch:        defaultMainBranch,
			SkipWindowSeconds: defaultSkipWindowSeconds,
		},
		Installer: Installer{
			Command: []string{"python3", "-m", "pip", "install", "-r", ManifestPlaceholder},
		},
		Fallback: Fallback{
			Command:          []string{"./run.sh"},
			Mode:             defaultFallbackMode,
			ScreenPath:       defaultScreenPath,
			StopGraceSeconds: defaultFallbackStopGraceSecond,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
