package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"appctl/internal/config"
	"appctl/internal/depgate"
	"appctl/internal/deps"
	"appctl/internal/fileutil"
	"appctl/internal/preflight"
	"appctl/internal/vcs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show unit detection, markers, dependency state and required binaries",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *appRuntime) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				runCtx := commandCtx(cmd)
				var lines []string

				lines = append(lines, renderSectionHeader("Application", colorize))
				lines = append(lines, renderStatusLine("Config", statusInfo, configLabel(ctx), colorize))
				lines = append(lines, renderStatusLine("Directory", statusInfo, rt.cfg.App.Dir, colorize))
				if rt.repo == nil {
					lines = append(lines, renderStatusLine("Branch", statusWarn, "not a git repository", colorize))
				} else {
					branch, err := rt.repo.CurrentBranch(runCtx)
					head, headErr := rt.repo.Head(runCtx)
					switch {
					case err != nil:
						lines = append(lines, renderStatusLine("Branch", statusWarn, err.Error(), colorize))
					case headErr != nil:
						lines = append(lines, renderStatusLine("Branch", statusOK, branch, colorize))
					default:
						lines = append(lines, renderStatusLine("Branch", statusOK, branch+" @ "+head, colorize))
					}
					if err == nil {
						kind, message := upstreamStatus(runCtx, rt.repo, branch)
						lines = append(lines, renderStatusLine("Upstream", kind, message, colorize))
					}
				}

				lines = append(lines, "", renderSectionHeader("Supervisor", colorize))
				lines = append(lines, renderStatusLine("Backend", statusInfo, rt.supervisor.Name(), colorize))
				if unit, ok := rt.detector.Detect(runCtx); ok {
					sample, err := rt.supervisor.State(runCtx, unit)
					switch {
					case err != nil:
						lines = append(lines, renderStatusLine("Unit", statusWarn, unit+" (state unavailable)", colorize))
					case sample.Active == "active":
						lines = append(lines, renderStatusLine("Unit", statusOK, unit+" ("+sample.Summary()+")", colorize))
					default:
						lines = append(lines, renderStatusLine("Unit", statusWarn, unit+" ("+sample.Summary()+")", colorize))
					}
				} else {
					lines = append(lines, renderStatusLine("Unit", statusInfo, "none; commands run the application directly", colorize))
				}

				lines = append(lines, "", renderSectionHeader("Fallback", colorize))
				mode := config.FallbackForeground
				if rt.fallback.ScreenMode() {
					mode = config.FallbackScreen
				}
				lines = append(lines, renderStatusLine("Mode", statusInfo, mode, colorize))
				if pid, running := rt.fallback.Running(); running {
					lines = append(lines, renderStatusLine("Process", statusOK, "running (pid "+strconv.Itoa(pid)+")", colorize))
				} else if mode == config.FallbackForeground {
					lines = append(lines, renderStatusLine("Process", statusInfo, "not running", colorize))
				}

				lines = append(lines, "", renderSectionHeader("Dependencies", colorize))
				kind, message := manifestStatus(rt.cfg.ManifestPath())
				lines = append(lines, renderStatusLine("Manifest", kind, message, colorize))

				lines = append(lines, "", renderSectionHeader("Preflight", colorize))
				for _, result := range preflight.RunAll(runCtx, rt.cfg) {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}

				fmt.Fprintln(out, strings.Join(lines, "\n"))
				fmt.Fprintln(out)

				entries, err := rt.store.List()
				if err != nil {
					return fmt.Errorf("list markers: %w", err)
				}
				fmt.Fprintln(out, renderSectionHeader("Markers", colorize))
				if len(entries) == 0 {
					fmt.Fprintln(out, "  (none)")
				} else {
					fmt.Fprintln(out, renderMarkerTable(entries))
				}
				fmt.Fprintln(out)

				fmt.Fprintln(out, renderSectionHeader("Binaries", colorize))
				printBinaries(out, deps.CheckBinaries(deps.Requirements(rt.cfg)))
				return nil
			})
		},
	}
}

func configLabel(ctx *commandContext) string {
	if ctx.configSeen {
		return ctx.configPath
	}
	return "defaults (no file at " + ctx.configPath + ")"
}

func manifestStatus(manifest string) (statusKind, string) {
	needs, err := depgate.New().NeedsInstall(manifest)
	if err != nil {
		return statusError, err.Error()
	}
	if needs {
		return statusWarn, manifest + " changed; next upgrade installs"
	}
	sum, err := fileutil.HashFile(manifest)
	if err != nil {
		return statusOK, manifest + " unchanged"
	}
	return statusOK, manifest + " unchanged (" + sum[:12] + ")"
}

func printBinaries(out io.Writer, statuses []deps.Status) {
	fmt.Fprintln(out, renderBinaryTable(statuses))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = m.Name
		}
		fmt.Fprintf(out, "Missing required binaries: %s\n", strings.Join(names, ", "))
	}
}

func upstreamStatus(ctx context.Context, repo *vcs.Repo, branch string) (statusKind, string) {
	ref := repo.Remote() + "/" + branch
	found, err := repo.RemoteBranchExists(ctx, branch)
	switch {
	case err != nil:
		return statusWarn, err.Error()
	case !found:
		return statusWarn, ref + " not found; upgrade pulls will fail"
	}
	return statusOK, ref
}
