// Package orchestrator is the tenant gateway control plane: it owns the
// provisioning workflow, the lifecycle controller and the reconcile loop,
// and is the single entry point callers use.
//
// The package never serializes operations across tenants; within one
// tenant, correctness rests entirely on the record store's guarded status
// transitions. Losing a transition race surfaces as an invalid-transition
// error rather than an overwrite.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/driver"
	"github.com/bluefairy/tenantd/internal/store"
	"github.com/bluefairy/tenantd/internal/util/naming"
)

// GatewaySpec is the per-backend template every tenant's compute unit is
// stamped from. Built once at process start from configuration.
type GatewaySpec struct {
	Image        string
	Shape        string
	VolumeSizeGB int
	StateDir     string
	Port         int
}

// Archiver exports destroyed tenant records for audit retention.
type Archiver interface {
	Archive(ctx context.Context, record *store.TenantRecord) error
}

// TransitionHook observes successful status transitions. Used by metrics
// and tests.
type TransitionHook func(tenantID string, from, to store.Status)

// Orchestrator wires the record store and the infrastructure driver.
type Orchestrator struct {
	store         store.Store
	driver        driver.Driver
	spec          GatewaySpec
	baseDomain    string
	defaultRegion string
	log           *zap.Logger

	archiver Archiver       // optional
	hook     TransitionHook // optional

	background sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{} // tenants with a provisioning workflow running
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithArchiver enables audit export on destroy.
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithTransitionHook registers an observer for status transitions.
func WithTransitionHook(h TransitionHook) Option {
	return func(o *Orchestrator) { o.hook = h }
}

// New constructs an Orchestrator.
func New(st store.Store, drv driver.Driver, spec GatewaySpec, baseDomain, defaultRegion string, log *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:         st,
		driver:        drv,
		spec:          spec,
		baseDomain:    baseDomain,
		defaultRegion: defaultRegion,
		log:           log,
		inflight:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Provision registers a tenant and kicks off the provisioning workflow in
// the background. It returns as soon as the record exists with status
// provisioning; callers poll GetStatus for progress.
//
// desiredSlug may be empty, in which case a slug is derived from the
// owner reference.
func (o *Orchestrator) Provision(ctx context.Context, ownerRef, desiredSlug, region string) (*store.TenantRecord, error) {
	if ownerRef == "" {
		return nil, fmt.Errorf("owner reference is required")
	}

	derived := desiredSlug == ""
	slug := desiredSlug
	if derived {
		slug = naming.Slug(ownerRef)
	} else if !naming.ValidSlug(slug) {
		return nil, fmt.Errorf("invalid slug %q", desiredSlug)
	}

	if region == "" {
		region = o.defaultRegion
	}

	record := &store.TenantRecord{
		ID:       uuid.NewString(),
		OwnerRef: ownerRef,
		Slug:     slug,
		Status:   store.StatusProvisioning,
		Region:   region,
	}
	// A derived slug carries a short random suffix, so a collision with
	// an existing tenant (including destroyed ones, whose slugs are
	// never released) is possible. Re-derive instead of surfacing an
	// error the caller cannot act on. A caller-chosen slug is never
	// rewritten.
	for attempt := 0; ; attempt++ {
		err := o.store.Create(ctx, record)
		if err == nil {
			break
		}
		if derived && errors.Is(err, store.ErrDuplicateSlug) && attempt < 2 {
			record.Slug = naming.Slug(ownerRef)
			continue
		}
		return nil, err
	}

	o.log.Info("tenant registered",
		zap.String("tenant", record.ID),
		zap.String("owner", ownerRef),
		zap.String("slug", record.Slug),
		zap.String("region", region))

	o.spawnProvision(record.ID)
	return record.Clone(), nil
}

// Retry re-enters the provisioning workflow for a tenant stuck in error.
// Never automatic: a tenant in error stays there until an operator calls
// this.
func (o *Orchestrator) Retry(ctx context.Context, tenantID string) error {
	record, err := o.store.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if record.Status != store.StatusError {
		return &store.InvalidTransitionError{ID: tenantID, From: record.Status, To: store.StatusProvisioning}
	}
	if err := o.transition(ctx, tenantID, record.Status, store.StatusProvisioning, store.Fields{}); err != nil {
		return err
	}
	o.spawnProvision(tenantID)
	return nil
}

// StatusInfo is the caller-facing view of a tenant.
type StatusInfo struct {
	TenantID string       `json:"tenant_id"`
	Status   store.Status `json:"status"`
	Endpoint string       `json:"endpoint,omitempty"`
	Region   string       `json:"region"`
	Ready    bool         `json:"ready"`
}

// GetStatus returns the stored view of the owner's tenant. It does not
// touch the backend; callers needing freshness run Reconcile first.
func (o *Orchestrator) GetStatus(ctx context.Context, ownerRef string) (StatusInfo, error) {
	record, err := o.store.GetByOwner(ctx, ownerRef)
	if err != nil {
		return StatusInfo{}, err
	}
	return o.statusInfo(record), nil
}

// Get returns the record by tenant id.
func (o *Orchestrator) Get(ctx context.Context, tenantID string) (*store.TenantRecord, error) {
	return o.store.Get(ctx, tenantID)
}

// GetBySlug resolves an endpoint hostname's slug back to its record.
func (o *Orchestrator) GetBySlug(ctx context.Context, slug string) (*store.TenantRecord, error) {
	return o.store.GetBySlug(ctx, slug)
}

func (o *Orchestrator) statusInfo(record *store.TenantRecord) StatusInfo {
	endpoint := record.Endpoint
	if endpoint == "" && record.Status == store.StatusRunning {
		endpoint = naming.Endpoint(record.Slug, o.baseDomain)
	}
	return StatusInfo{
		TenantID: record.ID,
		Status:   record.Status,
		Endpoint: endpoint,
		Region:   record.Region,
		Ready:    record.Status == store.StatusRunning,
	}
}

// spawnProvision runs the workflow detached from the caller's context:
// registration must return immediately and the workflow must survive the
// HTTP request that triggered it.
//
// At most one workflow runs per tenant in this process. The recovery
// scan fires on every loop tick, and a record sitting inside a slow
// driver call still looks stale; a second workflow racing the first past
// the VolumeID check would create a duplicate volume. Reports whether
// the workflow was started.
func (o *Orchestrator) spawnProvision(tenantID string) bool {
	o.mu.Lock()
	if _, running := o.inflight[tenantID]; running {
		o.mu.Unlock()
		return false
	}
	o.inflight[tenantID] = struct{}{}
	o.mu.Unlock()

	o.background.Add(1)
	go func() {
		defer o.background.Done()
		defer func() {
			o.mu.Lock()
			delete(o.inflight, tenantID)
			o.mu.Unlock()
		}()
		if err := o.RunProvision(context.Background(), tenantID); err != nil {
			o.log.Error("provisioning failed",
				zap.String("tenant", tenantID),
				zap.Error(err))
		}
	}()
	return true
}

// Wait blocks until all background workflows have finished. Shutdown and
// test helper.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

// transition applies a guarded status change and notifies observers.
func (o *Orchestrator) transition(ctx context.Context, tenantID string, from, to store.Status, fields store.Fields) error {
	if err := o.store.UpdateStatus(ctx, tenantID, to, fields); err != nil {
		return err
	}
	transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	if o.hook != nil {
		o.hook(tenantID, from, to)
	}
	return nil
}
