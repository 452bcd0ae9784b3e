package supervisor

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"appctl/internal/config"
)

// Systemctl drives systemd through the systemctl and journalctl binaries.
type Systemctl struct {
	SystemctlPath  string
	JournalctlPath string
	SudoPath       string
	ElevationMode  string
	Timeout        time.Duration
	JournalLines   int
	StatusLines    int

	run       Runner
	once      sync.Once
	elevation []string
	elevErr   error
}

// NewSystemctl builds a Systemctl from configuration. A nil run uses os/exec.
func NewSystemctl(cfg *config.Config, run Runner) *Systemctl {
	if run == nil {
		run = execRunner
	}
	return &Systemctl{
		SystemctlPath:  cfg.Supervisor.SystemctlPath,
		JournalctlPath: cfg.Supervisor.JournalctlPath,
		SudoPath:       cfg.Supervisor.SudoPath,
		ElevationMode:  cfg.Supervisor.Elevation,
		Timeout:        cfg.SupervisorTimeout(),
		JournalLines:   cfg.Supervisor.JournalLines,
		StatusLines:    cfg.Supervisor.StatusLines,
		run:            run,
	}
}

func (s *Systemctl) Name() string { return "systemctl" }

// HasUnit looks for a unit file first, then for a loaded unit without one
// (transient or generated), matching what the D-Bus backend accepts.
func (s *Systemctl) HasUnit(ctx context.Context, unit string) (bool, error) {
	files, err := s.list(ctx, "list-unit-files", unit, unit+".service")
	if err != nil {
		return false, err
	}
	for _, fields := range files {
		if matchesUnit(fields[0], unit) {
			return true, nil
		}
	}

	loaded, err := s.list(ctx, "list-units", "--all", unitFileName(unit))
	if err != nil {
		return false, err
	}
	for _, fields := range loaded {
		// Failed units are prefixed with a status glyph.
		if fields[0] == "●" || fields[0] == "*" {
			fields = fields[1:]
		}
		if len(fields) > 1 && matchesUnit(fields[0], unit) && fields[1] != "not-found" {
			return true, nil
		}
	}
	return false, nil
}

// list runs a systemctl listing verb and returns the whitespace-separated
// columns of each non-empty row.
func (s *Systemctl) list(ctx context.Context, verb string, args ...string) ([][]string, error) {
	full := append([]string{verb, "--no-legend", "--no-pager"}, args...)
	out, stderr, err := s.exec(ctx, false, full...)
	if err != nil {
		// systemctl exits non-zero when the pattern matches nothing.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.TrimSpace(out) == "" {
			return nil, nil
		}
		return nil, &CommandError{Args: s.argv(false, full...), Stderr: stderr, Err: err}
	}
	var rows [][]string
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			rows = append(rows, fields)
		}
	}
	return rows, nil
}

func (s *Systemctl) State(ctx context.Context, unit string) (Sample, error) {
	args := []string{"show", "--no-pager", "-p", "ActiveState", "-p", "SubState", "-p", "Result", unitFileName(unit)}
	out, stderr, err := s.exec(ctx, false, args...)
	if err != nil {
		return UnknownSample(), &CommandError{Args: s.argv(false, args...), Stderr: stderr, Err: err}
	}
	return parseShow(out), nil
}

func parseShow(out string) Sample {
	sample := UnknownSample()
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || value == "" {
			continue
		}
		switch key {
		case "ActiveState":
			sample.Active = value
		case "SubState":
			sample.Sub = value
		case "Result":
			sample.Result = value
		}
	}
	return sample
}

func (s *Systemctl) Stop(ctx context.Context, unit string) error {
	return s.mutate(ctx, "stop", unit)
}

func (s *Systemctl) Restart(ctx context.Context, unit string) error {
	return s.mutate(ctx, "restart", unit)
}

func (s *Systemctl) mutate(ctx context.Context, verb, unit string) error {
	if _, stderr, err := s.exec(ctx, true, verb, unitFileName(unit)); err != nil {
		return &CommandError{Args: s.argv(true, verb, unitFileName(unit)), Stderr: stderr, Err: err}
	}
	return nil
}

// Diagnostics collects `systemctl status` and `journalctl -u` output. Either
// half may be missing; an error is returned only when both fail.
func (s *Systemctl) Diagnostics(ctx context.Context, unit string) (Diagnostics, error) {
	return collectDiagnostics(ctx, s, unit)
}

func collectDiagnostics(ctx context.Context, s *Systemctl, unit string) (Diagnostics, error) {
	name := unitFileName(unit)
	var diag Diagnostics

	// status exits 3 for inactive units but still prints useful output.
	statusOut, statusErrOut, statusErr := s.exec(ctx, false, "status", "--no-pager", "-n", strconv.Itoa(s.StatusLines), name)
	diag.Status = splitLines(statusOut)

	journalctl := s.JournalctlPath
	if journalctl == "" {
		journalctl = "journalctl"
	}
	jctx, cancel := s.commandContext(ctx)
	journalOut, journalErrOut, journalErr := s.run(jctx, journalctl, "-u", name, "-n", strconv.Itoa(s.JournalLines), "--no-pager")
	cancel()
	diag.Journal = splitLines(journalOut)

	if diag.Empty() && statusErr != nil && journalErr != nil {
		return diag, errors.Join(
			&CommandError{Args: s.argv(false, "status", name), Stderr: statusErrOut, Err: statusErr},
			&CommandError{Args: []string{journalctl, "-u", name}, Stderr: journalErrOut, Err: journalErr},
		)
	}
	return diag, nil
}

func splitLines(out string) []string {
	out = strings.TrimRight(out, "\n")
	if strings.TrimSpace(out) == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func (s *Systemctl) exec(ctx context.Context, elevate bool, args ...string) (string, string, error) {
	if elevate {
		s.once.Do(func() {
			s.elevation, s.elevErr = ResolveElevation(ctx, s.ElevationMode, s.SudoPath, s.run)
		})
		if s.elevErr != nil {
			return "", "", s.elevErr
		}
	}
	argv := s.argv(elevate, args...)
	cctx, cancel := s.commandContext(ctx)
	defer cancel()
	return s.run(cctx, argv[0], argv[1:]...)
}

func (s *Systemctl) argv(elevate bool, args ...string) []string {
	systemctl := s.SystemctlPath
	if systemctl == "" {
		systemctl = "systemctl"
	}
	argv := make([]string, 0, len(args)+3)
	if elevate {
		argv = append(argv, s.elevation...)
	}
	argv = append(argv, systemctl)
	return append(argv, args...)
}

func (s *Systemctl) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}
