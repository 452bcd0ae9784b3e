package supervisor

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes a command and returns its captured output.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

func execRunner(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
