package handlers

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/orchestrator"
	"github.com/bluefairy/tenantd/internal/server"
)

const shutdownGrace = 15 * time.Second

// Serve runs the daemon: HTTP API, startup recovery scan and reconcile
// loop, until SIGINT or SIGTERM.
func Serve(ctx context.Context, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resume whatever a previous process left mid-provisioning before
	// accepting new work.
	if resumed, err := a.orch.RecoverStale(ctx, a.cfg.Reconcile.StaleProvisioningAfter.Std()); err != nil {
		a.log.Warn("startup recovery scan failed", zap.Error(err))
	} else if resumed > 0 {
		a.log.Info("resumed stale provisioning attempts", zap.Int("count", resumed))
	}

	go func() {
		err := a.orch.RunLoop(ctx, orchestrator.LoopConfig{
			Interval:   a.cfg.Reconcile.Interval.Std(),
			Workers:    a.cfg.Reconcile.Workers,
			StaleAfter: a.cfg.Reconcile.StaleProvisioningAfter.Std(),
		})
		if err != nil && err != context.Canceled {
			a.log.Error("reconcile loop exited", zap.Error(err))
		}
	}()

	srv := server.New(a.orch, a.cfg.Server.AdminToken, a.log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(a.cfg.Server.Listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
