package fallback_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"appctl/internal/config"
	"appctl/internal/fallback"
	"appctl/internal/lockstore"
	"appctl/internal/testsupport"
)

func newRunner(t *testing.T, opts ...testsupport.ConfigOption) (*fallback.Runner, *config.Config, lockstore.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := lockstore.NewFileStore(cfg.Paths.LockDir)
	r := fallback.New(cfg, store, nil, nil, nil)
	r.Stdin = nil
	return r, cfg, store
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && len(strings.TrimSpace(string(data))) > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
}

func TestStartPassesArgsAndEnv(t *testing.T) {
	r, cfg, _ := newRunner(t, testsupport.WithFallbackCommand("sh", "-c", `echo "$GREETING $1 $2" > out.txt`, "run"))
	envFile := filepath.Join(cfg.App.Dir, ".env")
	testsupport.WriteFile(t, envFile, "GREETING=hello\n")
	r.EnvFile = envFile

	if err := r.Start(context.Background(), []string{"--port", "8000"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.App.Dir, "out.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "hello --port 8000" {
		t.Fatalf("output = %q", got)
	}
	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("pid file should be removed after exit: %v", err)
	}
}

func TestStartReportsNonZeroExit(t *testing.T) {
	r, _, _ := newRunner(t, testsupport.WithFallbackCommand("sh", "-c", "exit 4"))
	if err := r.Start(context.Background(), nil); err == nil {
		t.Fatal("expected exit error")
	}
}

func TestStopWithoutProcess(t *testing.T) {
	r, cfg, _ := newRunner(t)
	if err := r.Stop(context.Background()); !errors.Is(err, fallback.ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}

	// A pid file left by a crashed run must not be signalled.
	testsupport.WriteFile(t, cfg.PIDPath(), "999999\n")
	if err := r.Stop(context.Background()); !errors.Is(err, fallback.ErrNotRunning) {
		t.Fatalf("stale pid err = %v, want ErrNotRunning", err)
	}
	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatal("stale pid file should be cleared")
	}
}

func TestStopTerminatesForegroundProcess(t *testing.T) {
	r, cfg, _ := newRunner(t, testsupport.WithFallbackCommand("sleep", "30"))

	done := make(chan error, 1)
	go func() { done <- r.Start(context.Background(), nil) }()
	waitForFile(t, cfg.PIDPath())

	data, _ := os.ReadFile(cfg.PIDPath())
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	if running, ok := r.Running(); !ok || running != pid {
		t.Fatalf("Running = %d, %v; want %d", running, ok, pid)
	}
	if err := r.Start(context.Background(), nil); !errors.Is(err, fallback.ErrAlreadyRunning) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}

	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("foreground Start did not return after Stop")
	}
	if _, ok := r.Running(); ok {
		t.Fatal("process still reported running")
	}
}

const screenStub = `echo "$*" >> "$SCREEN_LOG"
if [ "$3" = "-X" ] && [ "$4" = "select" ]; then exit 1; fi
exit 0`

func TestScreenModeFromMarker(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "screen.log")
	t.Setenv("SCREEN_LOG", logPath)
	r, _, store := newRunner(t, testsupport.WithStubScript("screen", screenStub))

	if r.ScreenMode() {
		t.Fatal("screen mode should be off without marker or config")
	}
	if err := store.Set(lockstore.MarkerScreenMode, "1"); err != nil {
		t.Fatal(err)
	}
	if !r.ScreenMode() {
		t.Fatal("screen-mode marker should select screen")
	}

	if err := r.Start(context.Background(), []string{"--debug"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read screen log: %v", err)
	}
	want := []string{
		"-S app -X select .",
		"-dmS app ./run.sh --debug",
		"-S app -X quit",
	}
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("screen calls = %q, want %q", got, want)
	}
}

func TestScreenStopWithoutSession(t *testing.T) {
	r, cfg, _ := newRunner(t, testsupport.WithStubScript("screen", "exit 1"))
	cfg.Fallback.Mode = config.FallbackScreen
	r.Mode = config.FallbackScreen
	if err := r.Stop(context.Background()); !errors.Is(err, fallback.ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
}
