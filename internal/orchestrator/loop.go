package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/store"
)

// LoopConfig tunes the background reconcile loop.
type LoopConfig struct {
	// Interval between reconcile passes.
	Interval time.Duration
	// Workers bounds concurrent per-tenant reconciles within one pass.
	Workers int
	// StaleAfter is how long a provisioning record may sit unchanged
	// before the pass treats it as abandoned and resumes it.
	StaleAfter time.Duration
}

// RunLoop reconciles all tenants on a timer until ctx is cancelled. Each
// pass also resumes stale provisioning attempts. Errors from individual
// tenants are logged and do not stop the loop; a tenant that fails to
// reconcile this pass gets another chance next pass.
func (o *Orchestrator) RunLoop(ctx context.Context, cfg LoopConfig) error {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	o.log.Info("reconcile loop started",
		zap.Duration("interval", cfg.Interval),
		zap.Int("workers", cfg.Workers))

	for {
		select {
		case <-ctx.Done():
			o.log.Info("reconcile loop stopped")
			return ctx.Err()
		case <-ticker.C:
			o.reconcilePass(ctx, cfg)
		}
	}
}

func (o *Orchestrator) reconcilePass(ctx context.Context, cfg LoopConfig) {
	if cfg.StaleAfter > 0 {
		if resumed, err := o.RecoverStale(ctx, cfg.StaleAfter); err != nil {
			o.log.Warn("stale provisioning scan failed", zap.Error(err))
		} else if resumed > 0 {
			o.log.Info("resumed stale provisioning attempts", zap.Int("count", resumed))
		}
	}

	records, err := o.store.List(ctx, store.Filter{})
	if err != nil {
		o.log.Warn("reconcile pass failed to list tenants", zap.Error(err))
		return
	}

	sem := make(chan struct{}, cfg.Workers)
	for _, record := range records {
		if record.Status == store.StatusDestroyed || record.Status == store.StatusProvisioning {
			// Destroyed is terminal; provisioning belongs to the
			// workflow, not the loop.
			continue
		}

		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		}

		o.background.Add(1)
		go func(id string) {
			defer o.background.Done()
			defer func() { <-sem }()
			if err := o.Reconcile(ctx, id); err != nil {
				o.log.Warn("reconcile failed",
					zap.String("tenant", id),
					zap.Error(err))
			}
		}(record.ID)
	}

	// Drain so passes do not overlap on slow backends.
	for i := 0; i < cfg.Workers; i++ {
		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		}
	}
}
