package app

import (
	"context"
	"time"

	"github.com/vk/prompttrace/internal/ctxlog"
	"github.com/vk/prompttrace/internal/hostevents"
	"github.com/vk/prompttrace/internal/lifecycle"
)

// Run starts the sidecar's background work and blocks until the context
// is cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started")

	if a.appCfg.HTTPPort > 0 {
		a.startStatusServer(ctx, a.appCfg.HTTPPort)
	}

	if he := a.model.HostEvents; he != nil {
		listener, err := hostevents.Connect(ctx, hostevents.Config{
			URL:       he.URL,
			Namespace: he.Namespace,
			Staleness: a.model.Tracker.Staleness,
		}, a.registry)
		if err != nil {
			// Event hints are advisory; attribution keeps working without them.
			a.logger.Warn("host event subscription unavailable", "error", err)
		} else {
			a.listener = listener
		}
	}

	a.maintenanceLoop(ctx)

	a.logger.Info("shutting down")
	if a.listener != nil {
		a.listener.Close()
	}
	// The interceptor singleton dies with its worker here, so it must
	// leave the keeper too; a host reload constructs a fresh one instead
	// of finding a closed queue. The registry keeps its slot: it holds
	// live records and no resources worth tearing down.
	a.interceptor.Close()
	a.keeper.Drop(lifecycle.KeyInterceptor)
	if err := a.closeStatusServer(); err != nil {
		return err
	}
	a.logger.Debug("App.Run method finished")
	return nil
}

// maintenanceLoop periodically evicts stale prompt records and sweeps
// expired rendezvous entries until the context is cancelled.
func (a *App) maintenanceLoop(ctx context.Context) {
	interval := a.model.Tracker.MaintenanceInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("maintenance loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := a.registry.EvictStale(0)
			swept := a.rendezvous.Sweep()
			if evicted > 0 || swept > 0 {
				a.logger.Debug("maintenance pass", "evicted", evicted, "swept", swept)
			}
		}
	}
}
