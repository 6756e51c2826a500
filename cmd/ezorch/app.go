package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ezorch/ezorch/pkg/adminapi"
	"github.com/ezorch/ezorch/pkg/auth"
	"github.com/ezorch/ezorch/pkg/control"
	"github.com/ezorch/ezorch/pkg/eventlog"
	"github.com/ezorch/ezorch/pkg/healthprobe"
	"github.com/ezorch/ezorch/pkg/lvs"
	"github.com/ezorch/ezorch/pkg/portpool"
	"github.com/ezorch/ezorch/pkg/process"
	"github.com/ezorch/ezorch/pkg/reconciler"
	"github.com/ezorch/ezorch/pkg/runtimeconfig"
	"github.com/ezorch/ezorch/pkg/snat"
	"github.com/ezorch/ezorch/pkg/target"
	"go.uber.org/zap"
)

// app bundles every wired component a running supervisor needs: it is the
// daemon's equivalent of the original's single leaked GlobalState.
type app struct {
	runtime    *runtimeconfig.Manager
	supervisor *control.Supervisor
	reconciler *reconciler.Reconciler
	adminAPI   *adminapi.Server
	authConfig *auth.Config
	logger     *zap.Logger
}

// newApp loads runtime config, target, auth material, and wires every
// package into a ready-to-run supervisor.
func newApp(configPath string, logger *zap.Logger) (*app, error) {
	rc, err := runtimeconfig.Load(configPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load runtime config: %w", err)
	}
	rc.Watch()
	cfg := rc.Current()

	authConfig, err := auth.LoadOrGenerate(cfg.AuthPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth config: %w", err)
	}

	secrets, err := target.LoadSecrets(os.Getenv("EZORCH_SECRETS_FILE"))
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	targetStore, err := target.Load(cfg.TargetPath, secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load target: %w", err)
	}

	events := eventlog.NewLog()
	rate := eventlog.NewRateLimiter()

	pool := portpool.New(cfg.LoopbackPortRangeStart, cfg.LoopbackPortRangeEnd, cfg.AdminPort, events, logger)
	launcher := process.NewLauncher(pool, events, logger)
	health := healthprobe.New()

	ipvsManager, err := lvs.NewManager(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ipvs manager: %w", err)
	}
	ipvsAdapter := lvs.NewAdapter(ipvsManager)

	var snatManager snat.Manager
	if cfg.SNATEnabled {
		snatManager, err = snat.NewManager(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SNAT manager: %w", err)
		}
	}

	supervisor := control.New(targetStore, events, logger)
	if err := targetStore.Watch(&supervisor.Mu); err != nil {
		logger.Warn("failed to watch target file for external edits", zap.Error(err))
	}

	intervals := reconciler.Intervals{
		Start:  time.Duration(cfg.StartIntervalSeconds) * time.Second,
		Health: time.Duration(cfg.HealthIntervalSeconds) * time.Second,
	}
	recon := reconciler.New(supervisor, pool, launcher, health, ipvsAdapter, rate, intervals, snatManager, logger)

	apiServer := adminapi.New(supervisor, authConfig, logger)

	return &app{
		runtime:    rc,
		supervisor: supervisor,
		reconciler: recon,
		adminAPI:   apiServer,
		authConfig: authConfig,
		logger:     logger,
	}, nil
}

// housekeepingInterval returns how often RunOnce should be called in daemon mode.
func (a *app) housekeepingInterval() time.Duration {
	return time.Duration(a.runtime.Current().HousekeepingIntervalSeconds) * time.Second
}

// adminAddr returns the admin API's configured listen address.
func (a *app) adminAddr() string {
	cfg := a.runtime.Current()
	return fmt.Sprintf("%s:%d", cfg.AdminHost, cfg.AdminPort)
}
