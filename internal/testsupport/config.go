package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"appctl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory: the app
// checkout, lock and state directories all live below it, the supervisor is
// disabled, and polling is fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.App.Dir = filepath.Join(base, "app")
	cfgVal.Paths.LockDir = filepath.Join(base, "app", ".locks")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.LockStore.SQLitePath = filepath.Join(base, "state", "markers.db")
	cfgVal.Supervisor.Backend = config.SupervisorNone
	cfgVal.Supervisor.Elevation = config.ElevationNone
	cfgVal.Poller.DeadlineSeconds = 5
	cfgVal.Poller.IntervalSeconds = 1
	cfgVal.Fallback.Session = "app"
	cfgVal.Fallback.StopGraceSeconds = 1

	if err := os.MkdirAll(cfgVal.App.Dir, 0o755); err != nil {
		t.Fatalf("mkdir app dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithManifest writes content to the configured manifest path.
func WithManifest(content string) ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.ManifestPath(), content)
	}
}

// WithFallbackCommand overrides the direct-process entry point.
func WithFallbackCommand(argv ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fallback.Command = argv
	}
}

// WithInstallerCommand overrides the dependency installer argv.
func WithInstallerCommand(argv ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Installer.Command = argv
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH. If names is empty, the binaries appctl
// shells out to are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"systemctl", "journalctl", "sudo", "screen"}
		}
		for _, name := range names {
			writeStub(b, name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// WithStubScript installs an executable named name whose body is the given
// shell script, prepending its directory to PATH.
func WithStubScript(name, script string) ConfigOption {
	return func(b *configBuilder) {
		writeStub(b, name, "#!/bin/sh\n"+script+"\n")
	}
}

func writeStub(b *configBuilder, name, script string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}

	oldPath := os.Getenv("PATH")
	if entries := filepath.SplitList(oldPath); len(entries) > 0 && entries[0] == binDir {
		return
	}
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteConfigFile serializes cfg as TOML next to the test state directory and
// returns the file path, for commands that load configuration from disk.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "appctl.toml")
	WriteFile(t, path, string(data))
	return path
}
