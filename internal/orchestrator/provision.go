package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/driver"
	"github.com/bluefairy/tenantd/internal/store"
	"github.com/bluefairy/tenantd/internal/util/naming"
	"github.com/bluefairy/tenantd/internal/util/token"
)

// RunProvision executes the provisioning workflow for a tenant whose
// record is in status provisioning. Steps run in dependency order; each
// completed step's backend id is persisted immediately, so a crashed or
// abandoned attempt can be resumed from where it stopped: steps whose
// ids are already recorded are skipped, never repeated.
//
// On any step failure the record moves to error and the partial backend
// resources are deliberately left in place: a transient failure may mean
// the resource actually exists, and destroying it blindly could discard
// a volume that succeeded moments after we gave up. Cleanup is the
// operator's (or a later destroy's) decision.
func (o *Orchestrator) RunProvision(ctx context.Context, tenantID string) error {
	start := time.Now()
	log := o.log.With(zap.String("tenant", tenantID))

	record, err := o.store.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if record.Status != store.StatusProvisioning {
		return &store.InvalidTransitionError{ID: tenantID, From: record.Status, To: store.StatusRunning}
	}

	if record.AuthToken == "" {
		tok, err := token.New(token.MinBytes)
		if err != nil {
			return o.failProvision(ctx, record, "generate auth token", err)
		}
		if err := o.store.UpdateFields(ctx, tenantID, store.Fields{AuthToken: &tok}); err != nil {
			return err
		}
		record.AuthToken = tok
	}

	if record.VolumeID == "" {
		volumeID, err := o.driver.CreateVolume(ctx, driver.VolumeSpec{
			Name:   naming.Volume(record.Slug),
			Region: record.Region,
			SizeGB: o.spec.VolumeSizeGB,
		})
		if err != nil {
			return o.failProvision(ctx, record, "create volume", err)
		}
		if err := o.store.UpdateFields(ctx, tenantID, store.Fields{VolumeID: &volumeID}); err != nil {
			return err
		}
		record.VolumeID = volumeID
		log.Info("volume created", zap.String("volume", volumeID))
	}

	if record.ComputeID == "" {
		computeID, err := o.driver.CreateComputeUnit(ctx, o.computeSpec(record))
		if computeID != "" {
			// The unit exists even if the call subsequently failed;
			// record it so resumption and cleanup can find it.
			if saveErr := o.store.UpdateFields(ctx, tenantID, store.Fields{ComputeID: &computeID}); saveErr != nil {
				return saveErr
			}
			record.ComputeID = computeID
		}
		if err != nil {
			return o.failProvision(ctx, record, "create compute unit", err)
		}
		log.Info("compute unit created", zap.String("compute", computeID))
	}

	endpoint, err := o.driver.BindNetwork(ctx, record.ComputeID, naming.Hostname(record.Slug, o.baseDomain))
	if err != nil {
		return o.failProvision(ctx, record, "bind network", err)
	}

	if err := o.transition(ctx, tenantID, store.StatusProvisioning, store.StatusRunning, store.Fields{Endpoint: &endpoint}); err != nil {
		return err
	}

	provisionDuration.Observe(time.Since(start).Seconds())
	log.Info("tenant provisioned",
		zap.String("endpoint", endpoint),
		zap.Duration("took", time.Since(start).Round(time.Millisecond)))
	return nil
}

// computeSpec builds the driver spec for one tenant from the gateway
// template. The auth token and state directory travel only through the
// unit's environment.
func (o *Orchestrator) computeSpec(record *store.TenantRecord) driver.ComputeSpec {
	return driver.ComputeSpec{
		Name:     naming.ComputeUnit(record.Slug),
		Image:    o.spec.Image,
		Shape:    o.spec.Shape,
		Region:   record.Region,
		VolumeID: record.VolumeID,
		StateDir: o.spec.StateDir,
		Env: map[string]string{
			"GATEWAY_AUTH_TOKEN": record.AuthToken,
			"GATEWAY_STATE_DIR":  o.spec.StateDir,
			"GATEWAY_SLUG":       record.Slug,
		},
		Ports: []driver.PortSpec{{Port: o.spec.Port, TLS: true}},
	}
}

// failProvision records the failed attempt as a durable error status and
// returns the step error.
func (o *Orchestrator) failProvision(ctx context.Context, record *store.TenantRecord, step string, cause error) error {
	provisionFailures.WithLabelValues(step).Inc()
	o.log.Error("provisioning step failed",
		zap.String("tenant", record.ID),
		zap.String("step", step),
		zap.Error(cause))

	if err := o.transition(ctx, record.ID, store.StatusProvisioning, store.StatusError, store.Fields{}); err != nil {
		// A concurrent destroy may have won the race; the step error is
		// still the one worth surfacing.
		o.log.Warn("failed to record error status",
			zap.String("tenant", record.ID),
			zap.Error(err))
	}
	return fmt.Errorf("%s: %w", step, cause)
}
