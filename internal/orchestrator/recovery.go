package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/store"
)

// RecoverStale finds provisioning records that have not progressed for
// olderThan and resumes their workflows. A record stuck in provisioning
// means a previous process crashed mid-workflow; because each completed
// step's backend id was persisted, resumption picks up at the first
// incomplete step rather than repeating finished ones.
//
// Returns the number of workflows resumed. Intended to run once at
// startup and periodically from the reconcile loop. A record whose
// workflow is already running in this process is left alone: it only
// looks stale because the current step has not finished yet.
func (o *Orchestrator) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	records, err := o.store.List(ctx, store.Filter{
		Status:        store.StatusProvisioning,
		UpdatedBefore: time.Now().Add(-olderThan),
	})
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, record := range records {
		if !o.spawnProvision(record.ID) {
			continue
		}
		resumed++
		o.log.Info("resuming stale provisioning attempt",
			zap.String("tenant", record.ID),
			zap.String("slug", record.Slug),
			zap.Time("last_update", record.UpdatedAt))
	}
	return resumed, nil
}
