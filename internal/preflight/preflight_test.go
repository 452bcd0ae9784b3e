package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appctl/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCreatableDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", ".locks")
	result := CheckCreatableDirectory("locks", path)
	if !result.Passed || !strings.Contains(result.Detail, "created on first write") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckManifestMissing(t *testing.T) {
	if result := CheckManifest(filepath.Join(t.TempDir(), "requirements.txt")); result.Passed {
		t.Fatal("expected failure for missing manifest")
	}
}

func TestCheckWorkingCopy(t *testing.T) {
	dir := t.TempDir()
	if result := CheckWorkingCopy(context.Background(), dir, "origin"); result.Passed {
		t.Fatal("expected failure outside a repository")
	}
	testsupport.InitRepo(t, dir)
	result := CheckWorkingCopy(context.Background(), dir, "origin")
	if !result.Passed || !strings.Contains(result.Detail, "branch main") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAllReportsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("python3"))
	cfg.Fallback.Command = []string{"sh"}
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatalf("mkdir state: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	failed := Failed(results)
	names := make([]string, len(failed))
	for i, r := range failed {
		names[i] = r.Name
	}
	got := strings.Join(names, ",")
	if got != "Manifest,Working copy" {
		t.Fatalf("failed checks = %q, want Manifest,Working copy", got)
	}
}
