package deps

import (
	"os"
	"path/filepath"
	"testing"

	"appctl/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for empty command: %q", results[2].Detail)
	}
}

func TestRequirementsFollowBackends(t *testing.T) {
	cfg := config.Default()
	cfg.App.Dir = "/srv/app"
	cfg.Supervisor.Backend = config.SupervisorNone
	cfg.Fallback.Mode = config.FallbackScreen
	cfg.Fallback.Command = []string{"./run.sh"}

	byName := map[string]Requirement{}
	for _, req := range Requirements(&cfg) {
		byName[req.Name] = req
	}
	if !byName["systemctl"].Optional || !byName["sudo"].Optional {
		t.Fatal("supervisor binaries should be optional without a supervisor")
	}
	if byName["screen"].Optional {
		t.Fatal("screen should be required in screen mode")
	}
	app := byName["application"]
	if app.Optional || app.Command != "/srv/app/run.sh" {
		t.Fatalf("unexpected application requirement %#v", app)
	}
	if _, ok := byName["installer"]; !ok {
		t.Fatal("expected installer requirement")
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b", Optional: true},
		{Name: "c"},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "c" {
		t.Fatalf("unexpected missing %#v", missing)
	}
}
