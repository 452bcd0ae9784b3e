package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"appctl/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appctl.log")
	writeLog(t, path, "a\nb\nc\n")

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"b", "c"}) {
		t.Fatalf("lines = %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("offset = %d, want 6", offset)
	}
}

func TestLastLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appctl.log")
	writeLog(t, path, "a\nb\npart")

	lines, offset, err := logs.Last(path, 10)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"a", "b"}) || offset != 4 {
		t.Fatalf("lines = %#v offset = %d", lines, offset)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("Last = %#v, %d, %v", lines, offset, err)
	}
}

func TestFollowDeliversAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appctl.log")
	writeLog(t, path, "old\n")
	_, offset, err := logs.Last(path, 0)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan string, 4)
	done := make(chan error, 1)
	f := &logs.Follower{Path: path, Interval: 10 * time.Millisecond}
	go func() { done <- f.Follow(ctx, offset, func(line string) { got <- line }) }()

	appendLog(t, path, "new one\nnew two\n")
	for _, want := range []string{"new one", "new two"} {
		select {
		case line := <-got:
			if line != want {
				t.Fatalf("line = %q, want %q", line, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Follow returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not stop after cancel")
	}
}
