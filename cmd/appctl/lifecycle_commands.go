package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"appctl/internal/lifecycle"
)

func newLifecycleCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
		newRestartCommand(ctx),
		newUpgradeCommand(ctx),
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var silent bool
	cmd := &cobra.Command{
		Use:   "start [-- args...]",
		Short: "Start the application through its unit or directly",
		Long: "Start restarts the supervised unit when one is registered and waits until it is active.\n" +
			"Without a unit the application command runs directly; extra arguments after -- are passed to it.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *appRuntime) error {
				res, err := rt.controller.Start(commandCtx(cmd), lifecycle.StartOptions{Args: args, Silent: silent})
				if err != nil {
					return err
				}
				printStartResult(cmd.OutOrStdout(), res, rt.fallback.ScreenMode(), rt.cfg.Fallback.Session)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&silent, "silent", "s", false, "Do not wait for the unit to become active")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the application",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *appRuntime) error {
				res, err := rt.controller.Stop(commandCtx(cmd))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case res.Supervised:
					fmt.Fprintf(out, "Stopped unit %s\n", res.Unit)
				case res.NotRunning:
					fmt.Fprintln(out, "Application is not running")
				default:
					fmt.Fprintln(out, "Application stopped")
				}
				return nil
			})
		},
	}
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	var silent bool
	cmd := &cobra.Command{
		Use:     "restart [-- args...]",
		Aliases: []string{"reload"},
		Short:   "Restart the application",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *appRuntime) error {
				res, err := rt.controller.Restart(commandCtx(cmd), lifecycle.RestartOptions{Args: args, Silent: silent})
				if err != nil {
					return err
				}
				printStartResult(cmd.OutOrStdout(), res, rt.fallback.ScreenMode(), rt.cfg.Fallback.Session)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&silent, "silent", "s", false, "Do not wait for the unit to become active")
	return cmd
}

func newUpgradeCommand(ctx *commandContext) *cobra.Command {
	var opts lifecycle.UpgradeOptions
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Pull the latest code and reinstall dependencies when they changed",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Main && opts.Branch != "" {
				return usageErrorf("--branch and --main are mutually exclusive")
			}
			return ctx.withRuntime(cmd, func(rt *appRuntime) error {
				res, err := rt.controller.Upgrade(commandCtx(cmd), opts)
				if err != nil {
					return err
				}
				printUpgradeResult(cmd.OutOrStdout(), res, opts)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&opts.Branch, "branch", "b", "", "Switch to this branch before pulling")
	cmd.Flags().BoolVar(&opts.Main, "main", false, "Switch to the configured main branch before pulling")
	cmd.Flags().BoolVar(&opts.Auto, "auto", false, "Scheduled run: skip once after a recent manual start")
	cmd.Flags().BoolVarP(&opts.Restart, "restart", "r", false, "Restart the application afterwards")
	return cmd
}

func printStartResult(out io.Writer, res lifecycle.StartResult, screen bool, session string) {
	switch {
	case res.Supervised && !res.Waited:
		fmt.Fprintf(out, "Restart requested for unit %s\n", res.Unit)
	case res.Supervised:
		fmt.Fprintf(out, "Unit %s is running\n", res.Unit)
	case screen:
		fmt.Fprintf(out, "Application started in screen session %q\n", session)
	}
}

func printUpgradeResult(out io.Writer, res lifecycle.UpgradeResult, opts lifecycle.UpgradeOptions) {
	if res.SkippedByMarker {
		fmt.Fprintln(out, "Skipped: the application was started manually within the skip window")
		return
	}
	if res.BranchMissing {
		target := opts.Branch
		if opts.Main {
			target = "main branch"
		}
		fmt.Fprintf(out, "Branch %s not found; staying on the current branch\n", target)
	}
	if res.Branch == "" {
		return
	}
	switch {
	case res.CreatedTracking:
		fmt.Fprintf(out, "Created tracking branch %s\n", res.Branch)
	case res.Switched:
		fmt.Fprintf(out, "Switched to branch %s\n", res.Branch)
	}
	if res.Updated {
		fmt.Fprintf(out, "Updated %s\n", res.Branch)
	} else {
		fmt.Fprintf(out, "%s already up to date\n", res.Branch)
	}
	switch {
	case res.Installed:
		fmt.Fprintln(out, "Dependencies installed")
	case res.InstallSkipped:
		fmt.Fprintln(out, "Dependencies unchanged")
	}
	if res.Restarted {
		printStartResult(out, res.Restart, false, "")
	}
}
