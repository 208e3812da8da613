package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/driver"
	"github.com/bluefairy/tenantd/internal/store"
)

// Start powers on a stopped tenant. Starting an already-running tenant
// succeeds as a no-op. A backend report that the compute unit no longer
// exists is drift: the record moves to error for reconciliation.
func (o *Orchestrator) Start(ctx context.Context, tenantID string) error {
	record, err := o.store.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if record.Status == store.StatusRunning {
		return nil
	}
	if record.Status != store.StatusStopped {
		return &store.InvalidTransitionError{ID: tenantID, From: record.Status, To: store.StatusRunning}
	}

	if err := o.driver.Start(ctx, record.ComputeID); err != nil {
		return o.handleDrift(ctx, record, err)
	}
	return o.transition(ctx, tenantID, record.Status, store.StatusRunning, store.Fields{})
}

// Stop powers off a running tenant. Stopping an already-stopped tenant
// succeeds as a no-op.
func (o *Orchestrator) Stop(ctx context.Context, tenantID string) error {
	record, err := o.store.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if record.Status == store.StatusStopped {
		return nil
	}
	if record.Status != store.StatusRunning {
		return &store.InvalidTransitionError{ID: tenantID, From: record.Status, To: store.StatusStopped}
	}

	if err := o.driver.Stop(ctx, record.ComputeID); err != nil {
		return o.handleDrift(ctx, record, err)
	}
	return o.transition(ctx, tenantID, record.Status, store.StatusStopped, store.Fields{})
}

// handleDrift maps a lifecycle driver failure: a missing backend object
// is recorded as error status (the record lied about reality), while a
// transient backend failure leaves the status untouched for the caller
// to retry.
func (o *Orchestrator) handleDrift(ctx context.Context, record *store.TenantRecord, cause error) error {
	if driver.IsNotFound(cause) {
		if err := o.transition(ctx, record.ID, record.Status, store.StatusError, store.Fields{}); err != nil {
			o.log.Warn("failed to record drift",
				zap.String("tenant", record.ID),
				zap.Error(err))
		}
	}
	return cause
}

// Destroy tears down the tenant's backend resources and marks the record
// destroyed. Allowed from any non-destroyed status; destroying an
// already-destroyed tenant is a no-op.
//
// The record is marked destroyed only after the driver confirms (or
// reports the resources already gone). A transient backend failure keeps
// the current status so the caller retries; marking destroyed while
// resources may exist would orphan infrastructure with no record
// pointing at it.
func (o *Orchestrator) Destroy(ctx context.Context, tenantID string) error {
	record, err := o.store.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if record.Status == store.StatusDestroyed {
		return nil
	}

	ref := driver.BackendRef{ComputeID: record.ComputeID, VolumeID: record.VolumeID}
	if !ref.Empty() {
		if err := o.driver.Destroy(ctx, ref); err != nil && !driver.IsNotFound(err) {
			return err
		}
	}

	if err := o.transition(ctx, tenantID, record.Status, store.StatusDestroyed, store.Fields{ClearBackend: true}); err != nil {
		// A concurrent destroy may have beaten us to the transition;
		// already-destroyed is exactly the end state we wanted.
		if store.IsInvalidTransition(err) {
			current, getErr := o.store.Get(ctx, tenantID)
			if getErr == nil && current.Status == store.StatusDestroyed {
				return nil
			}
		}
		return err
	}

	o.log.Info("tenant destroyed", zap.String("tenant", tenantID))

	if o.archiver != nil {
		record.Status = store.StatusDestroyed
		if err := o.archiver.Archive(ctx, record); err != nil {
			o.log.Warn("failed to archive destroyed tenant",
				zap.String("tenant", tenantID),
				zap.Error(err))
		}
	}
	return nil
}

// canonicalStatus maps a driver observation onto the stored status it
// should correspond to. Unknown observations are unmappable: the second
// return is false and reconciliation makes no change.
func canonicalStatus(observed driver.ObservedStatus) (store.Status, bool) {
	switch observed {
	case driver.ObservedPending:
		return store.StatusProvisioning, true
	case driver.ObservedRunning:
		return store.StatusRunning, true
	case driver.ObservedStopped:
		return store.StatusStopped, true
	case driver.ObservedNotFound:
		return store.StatusError, true
	default:
		return "", false
	}
}

// Reconcile compares the stored status against the backend's observed
// state and corrects the record when they disagree. Safe to call on a
// timer for every tenant or on demand before a freshness-sensitive
// status query.
func (o *Orchestrator) Reconcile(ctx context.Context, tenantID string) error {
	record, err := o.store.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if record.Status == store.StatusDestroyed {
		return nil
	}
	if record.ComputeID == "" {
		// Nothing observable yet; the provisioning workflow owns this
		// phase.
		return nil
	}

	observed, err := o.driver.Inspect(ctx, record.ComputeID)
	if err != nil {
		reconcileTotal.WithLabelValues("error").Inc()
		return err
	}

	canonical, ok := canonicalStatus(observed)
	if !ok {
		reconcileTotal.WithLabelValues("unknown").Inc()
		return nil
	}
	if canonical == record.Status {
		reconcileTotal.WithLabelValues("in_sync").Inc()
		return nil
	}

	if err := o.transition(ctx, tenantID, record.Status, canonical, store.Fields{}); err != nil {
		// Lost a race with another operation; if the record already
		// matches the observation there is nothing left to correct.
		if store.IsInvalidTransition(err) {
			current, getErr := o.store.Get(ctx, tenantID)
			if getErr == nil && current.Status == canonical {
				reconcileTotal.WithLabelValues("in_sync").Inc()
				return nil
			}
		}
		return err
	}

	reconcileTotal.WithLabelValues("corrected").Inc()
	o.log.Info("reconciled drift",
		zap.String("tenant", tenantID),
		zap.String("stored", string(record.Status)),
		zap.String("observed", string(observed)),
		zap.String("corrected_to", string(canonical)))
	return nil
}
