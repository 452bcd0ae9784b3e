package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"appctl/internal/lifecycle"
	"appctl/internal/logging"
	"appctl/internal/scheduler"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	var cronExpr string
	var restart bool
	var now bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run automatic upgrades on a schedule until interrupted",
		Long: "Schedule runs `upgrade --auto` on an interval or cron cadence. Only one scheduler may run per\n" +
			"state directory. A manual start within the skip window makes the next scheduled run skip once.",
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval > 0 && strings.TrimSpace(cronExpr) != "" {
				return usageErrorf("--interval and --cron are mutually exclusive")
			}
			return ctx.withRuntime(cmd, func(rt *appRuntime) error {
				opts := scheduler.Options{
					Interval:  interval,
					Cron:      cronExpr,
					Immediate: now,
					LockPath:  rt.cfg.SchedulerLockPath(),
					Logger:    rt.logger,
				}
				if opts.Interval <= 0 && strings.TrimSpace(opts.Cron) == "" {
					configured, err := rt.cfg.ScheduleInterval()
					if err != nil {
						return err
					}
					opts.Interval = configured
					opts.Cron = rt.cfg.Schedule.Cron
				}
				if opts.Interval <= 0 && strings.TrimSpace(opts.Cron) == "" {
					return usageErrorf("no schedule configured: pass --interval or --cron, or set [schedule] in the config")
				}
				if !cmd.Flags().Changed("restart") {
					restart = rt.cfg.Schedule.Restart
				}
				if restart && !rt.fallback.ScreenMode() {
					if _, supervised := rt.detector.Detect(commandCtx(cmd)); !supervised {
						logging.WarnWithContext(rt.logger, "scheduled restarts run the application in the foreground", "schedule_foreground_restart",
							logging.String(logging.FieldErrorHint, "register a unit with `appctl service set` or select `appctl mode screen`"),
							logging.String(logging.FieldImpact, "the scheduler blocks while the application runs"),
						)
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Scheduler running (%s); press Ctrl+C to stop\n", describeCadence(opts))
				return scheduler.Run(commandCtx(cmd), opts, func(runCtx context.Context) error {
					_, err := rt.controller.Upgrade(runCtx, lifecycle.UpgradeOptions{Auto: true, Restart: restart})
					return err
				})
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Upgrade every interval (for example 6h)")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Upgrade on a five-field cron expression")
	cmd.Flags().BoolVarP(&restart, "restart", "r", false, "Restart the application after each upgrade")
	cmd.Flags().BoolVar(&now, "now", false, "Run one upgrade immediately")
	return cmd
}

func describeCadence(opts scheduler.Options) string {
	if opts.Cron != "" {
		return "cron " + strings.TrimSpace(opts.Cron)
	}
	return "every " + opts.Interval.String()
}
