package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"appctl/internal/config"
	"appctl/internal/depgate"
	"appctl/internal/fallback"
	"appctl/internal/installer"
	"appctl/internal/lifecycle"
	"appctl/internal/lockstore"
	"appctl/internal/logging"
	"appctl/internal/poller"
	"appctl/internal/supervisor"
	"appctl/internal/vcs"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, w, flagValue(c.logLevelFlag), flagValue(c.logFormatFlag))
}

// appRuntime holds the collaborators one command invocation works with.
type appRuntime struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      lockstore.Store
	supervisor supervisor.UnitSupervisor
	detector   *supervisor.Detector
	fallback   *fallback.Runner
	repo       *vcs.Repo
	controller *lifecycle.Controller
}

func (c *commandContext) openRuntime(cmd *cobra.Command) (*appRuntime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	logger = logging.WithContext(cmd.Context(), logger)

	store, err := lockstore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open lock store: %w", err)
	}
	sup, err := supervisor.New(commandCtx(cmd), cfg, logger)
	if err != nil {
		_ = lockstore.Close(store)
		return nil, fmt.Errorf("connect supervisor: %w", err)
	}

	out := cmd.OutOrStdout()
	rt := &appRuntime{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		supervisor: sup,
		detector:   supervisor.NewDetector(store, sup, logger),
		fallback:   fallback.New(cfg, store, out, cmd.ErrOrStderr(), logger),
	}
	rt.fallback.Stdin = cmd.InOrStdin()

	deps := lifecycle.Dependencies{
		Store:      store,
		Detector:   rt.detector,
		Supervisor: sup,
		Waiter:     poller.NewUnitWaiter(cfg, sup, logger, out),
		Fallback:   rt.fallback,
		Installer:  installer.New(cfg, out, cmd.ErrOrStderr(), logger),
		Gate:       depgate.New(),
		Logger:     logger,
		Manifest:   cfg.ManifestPath(),
		MainBranch: cfg.Upgrade.MainBranch,
		SkipWindow: cfg.SkipWindow(),
	}
	if repo, err := vcs.Open(cfg.App.Dir, cfg.Upgrade.Remote); err == nil {
		rt.repo = repo
		deps.VCS = repo
	} else {
		logger.Debug("working copy unavailable", logging.String("dir", cfg.App.Dir), logging.Error(err))
	}
	rt.controller = lifecycle.New(deps)
	return rt, nil
}

func (r *appRuntime) Close() {
	supervisor.Close(r.supervisor)
	if err := lockstore.Close(r.store); err != nil {
		r.logger.Warn("close lock store", logging.Error(err))
	}
}

func (c *commandContext) withRuntime(cmd *cobra.Command, fn func(*appRuntime) error) error {
	rt, err := c.openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

// withStore opens only the lock store for marker-management commands.
func (c *commandContext) withStore(fn func(*config.Config, lockstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := lockstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open lock store: %w", err)
	}
	defer lockstore.Close(store)
	return fn(cfg, store)
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func flagValue(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
