package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"appctl/internal/config"
	"appctl/internal/logging"
)

// ErrUnavailable reports that no process supervisor can be reached.
var ErrUnavailable = errors.New("process supervisor unavailable")

// Unknown fills sample fields the supervisor did not report.
const Unknown = "unknown"

// Sample is one observation of a unit's activity, sub and result state.
type Sample struct {
	Active string
	Sub    string
	Result string
}

// UnknownSample is used when a unit could not be queried.
func UnknownSample() Sample {
	return Sample{Active: Unknown, Sub: Unknown, Result: Unknown}
}

// Summary renders the sample as active/sub/result.
func (s Sample) Summary() string {
	return orUnknown(s.Active) + "/" + orUnknown(s.Sub) + "/" + orUnknown(s.Result)
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return Unknown
	}
	return v
}

// Diagnostics carries recent status and journal lines for a unit.
type Diagnostics struct {
	Status  []string
	Journal []string
}

// Empty reports whether no diagnostic lines were gathered.
func (d Diagnostics) Empty() bool {
	return len(d.Status) == 0 && len(d.Journal) == 0
}

// UnitSupervisor is the capability set appctl needs from a process supervisor.
type UnitSupervisor interface {
	Name() string
	// HasUnit reports whether unit is registered. The name matches exactly or
	// with a ".service" suffix added.
	HasUnit(ctx context.Context, unit string) (bool, error)
	State(ctx context.Context, unit string) (Sample, error)
	Stop(ctx context.Context, unit string) error
	Restart(ctx context.Context, unit string) error
	Diagnostics(ctx context.Context, unit string) (Diagnostics, error)
}

// CommandError describes a supervisor command that exited unsuccessfully.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// New selects a supervisor backend from configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (UnitSupervisor, error) {
	if cfg == nil {
		return nil, errors.New("supervisor: config is nil")
	}
	logger = logging.NewComponentLogger(logger, "supervisor")
	switch cfg.Supervisor.Backend {
	case config.SupervisorNone:
		return Absent{}, nil
	case config.SupervisorSystemctl:
		return NewSystemctl(cfg, nil), nil
	case config.SupervisorDBus:
		sd, err := NewDBus(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sd, nil
	case config.SupervisorAuto, "":
		if _, err := exec.LookPath(cfg.Supervisor.SystemctlPath); err != nil {
			logger.Debug("systemctl not found; supervisor disabled", logging.Error(err))
			return Absent{}, nil
		}
		return NewSystemctl(cfg, nil), nil
	default:
		return nil, fmt.Errorf("supervisor: unsupported backend %q", cfg.Supervisor.Backend)
	}
}

// Close releases resources held by sup when it has any.
func Close(sup UnitSupervisor) {
	if c, ok := sup.(interface{ Close() }); ok {
		c.Close()
	}
}

var unitSuffixes = []string{".service", ".socket", ".target", ".timer", ".path", ".scope", ".slice", ".mount"}

func unitFileName(unit string) string {
	for _, suffix := range unitSuffixes {
		if strings.HasSuffix(unit, suffix) {
			return unit
		}
	}
	return unit + ".service"
}

func matchesUnit(candidate, unit string) bool {
	return candidate == unit || candidate == unit+".service"
}
