package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"appctl/internal/config"
	"appctl/internal/lockstore"
)

func newServiceCommand(ctx *commandContext) *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the supervised unit marker",
	}

	serviceCmd.AddCommand(&cobra.Command{
		Use:   "set <unit>",
		Short: "Record the unit appctl should control",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit := strings.TrimSpace(args[0])
			if unit == "" {
				return usageErrorf("unit name must not be empty")
			}
			return ctx.withStore(func(_ *config.Config, store lockstore.Store) error {
				if err := store.Set(lockstore.MarkerService, unit); err != nil {
					return fmt.Errorf("set service marker: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service unit set to %s\n", unit)
				return nil
			})
		},
	})

	serviceCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the supervised unit",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store lockstore.Store) error {
				if err := store.Delete(lockstore.MarkerService); err != nil {
					return fmt.Errorf("clear service marker: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Service unit cleared")
				return nil
			})
		},
	})

	serviceCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the recorded unit",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store lockstore.Store) error {
				unit, ok, err := store.Get(lockstore.MarkerService)
				if err != nil {
					return fmt.Errorf("read service marker: %w", err)
				}
				if !ok || unit == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No service unit recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), unit)
				return nil
			})
		},
	})

	return serviceCmd
}

func newModeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "mode [screen|foreground]",
		Short:     "Show or select how the application runs without a supervisor",
		Args:      usageArgs(cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs)),
		ValidArgs: []string{config.FallbackScreen, config.FallbackForeground},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store lockstore.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					var err error
					if args[0] == config.FallbackScreen {
						err = store.Set(lockstore.MarkerScreenMode, "1")
					} else {
						err = store.Delete(lockstore.MarkerScreenMode)
					}
					if err != nil {
						return fmt.Errorf("update screen-mode marker: %w", err)
					}
				}
				marker, err := store.Exists(lockstore.MarkerScreenMode)
				if err != nil {
					return fmt.Errorf("read screen-mode marker: %w", err)
				}
				mode := config.FallbackForeground
				if marker || cfg.Fallback.Mode == config.FallbackScreen {
					mode = config.FallbackScreen
				}
				fmt.Fprintf(out, "Fallback mode: %s\n", mode)
				if !marker && mode == config.FallbackScreen && len(args) == 1 && args[0] == config.FallbackForeground {
					fmt.Fprintln(out, "fallback.mode in the configuration still selects screen")
				}
				return nil
			})
		},
	}
}
