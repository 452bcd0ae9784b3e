package installer_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appctl/internal/installer"
)

func TestArgvSubstitutesManifest(t *testing.T) {
	cmd := &installer.Command{Args: []string{"pip", "install", "-r", "{manifest}", "--constraint={manifest}.lock"}}
	got := strings.Join(cmd.Argv("/srv/app/requirements.txt"), " ")
	want := "pip install -r /srv/app/requirements.txt --constraint=/srv/app/requirements.txt.lock"
	if got != want {
		t.Fatalf("argv = %q, want %q", got, want)
	}
}

func TestInstallRunsInAppDir(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	cmd := &installer.Command{
		Args:   []string{"sh", "-c", `pwd; echo "$0"`, "{manifest}"},
		Dir:    dir,
		Stdout: &stdout,
	}
	if err := cmd.Install(context.Background(), "requirements.txt"); err != nil {
		t.Fatalf("Install: %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	out := stdout.String()
	if !strings.Contains(out, resolved) && !strings.Contains(out, dir) {
		t.Fatalf("installer did not run in %s: %q", dir, out)
	}
	if !strings.Contains(out, "requirements.txt") {
		t.Fatalf("manifest not substituted: %q", out)
	}
}

func TestInstallFailureIsWrapped(t *testing.T) {
	cmd := &installer.Command{Args: []string{"sh", "-c", "exit 3"}, Dir: t.TempDir()}
	err := cmd.Install(context.Background(), "requirements.txt")
	if !errors.Is(err, installer.ErrInstallFailed) {
		t.Fatalf("err = %v, want ErrInstallFailed", err)
	}
}

func TestInstallMissingBinary(t *testing.T) {
	cmd := &installer.Command{Args: []string{filepath.Join(t.TempDir(), "nope")}, Dir: os.TempDir()}
	if err := cmd.Install(context.Background(), "requirements.txt"); !errors.Is(err, installer.ErrInstallFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestInstallEmptyCommand(t *testing.T) {
	if err := (&installer.Command{}).Install(context.Background(), "x"); !errors.Is(err, installer.ErrInstallFailed) {
		t.Fatalf("err = %v", err)
	}
}
