package deps

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"appctl/internal/config"
)

// Requirement defines an external binary appctl may invoke.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured backends will execute.
// Binaries only used by an inactive backend are marked optional.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	supervised := cfg.Supervisor.Backend != config.SupervisorNone
	reqs := []Requirement{
		{
			Name:        "systemctl",
			Command:     cfg.Supervisor.SystemctlPath,
			Description: "Controls and inspects the supervised unit",
			Optional:    cfg.Supervisor.Backend != config.SupervisorSystemctl,
		},
		{
			Name:        "journalctl",
			Command:     cfg.Supervisor.JournalctlPath,
			Description: "Recent unit log lines for failure diagnostics",
			Optional:    true,
		},
		{
			Name:        "sudo",
			Command:     cfg.Supervisor.SudoPath,
			Description: "Elevates mutating supervisor commands",
			Optional:    !supervised || cfg.Supervisor.Elevation != config.ElevationSudo,
		},
		{
			Name:        "screen",
			Command:     cfg.Fallback.ScreenPath,
			Description: "Detached sessions for the unsupervised fallback",
			Optional:    cfg.Fallback.Mode != config.FallbackScreen,
		},
	}
	if len(cfg.Installer.Command) > 0 {
		reqs = append(reqs, Requirement{
			Name:        "installer",
			Command:     resolveCommand(cfg.App.Dir, cfg.Installer.Command[0]),
			Description: "Installs dependencies from the manifest",
		})
	}
	if len(cfg.Fallback.Command) > 0 {
		reqs = append(reqs, Requirement{
			Name:        "application",
			Command:     resolveCommand(cfg.App.Dir, cfg.Fallback.Command[0]),
			Description: "Entry point used when no unit is supervised",
			Optional:    supervised,
		})
	}
	return reqs
}

// resolveCommand anchors relative paths such as ./run.sh to the app directory.
func resolveCommand(dir, command string) string {
	command = strings.TrimSpace(command)
	if command == "" || filepath.IsAbs(command) || !strings.ContainsRune(command, filepath.Separator) {
		return command
	}
	return filepath.Join(dir, command)
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the statuses of required binaries that are unavailable.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
