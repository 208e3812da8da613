// Package driver defines the capability interface every infrastructure
// backend implements: create/inspect/start/stop/destroy over three resource
// kinds (compute unit, persistent volume, network binding).
//
// Backends are stateless from the orchestrator's perspective. All state
// lives in the external provider and is referenced by the ids the driver
// returns; the tenant record store keeps those ids durable.
package driver

import (
	"context"
	"fmt"
)

// ObservedStatus is what Inspect reports about a compute unit. It is the
// backend's view, which reconciliation maps onto the stored tenant status.
type ObservedStatus string

const (
	ObservedPending  ObservedStatus = "pending"
	ObservedRunning  ObservedStatus = "running"
	ObservedStopped  ObservedStatus = "stopped"
	ObservedNotFound ObservedStatus = "not_found"
	ObservedUnknown  ObservedStatus = "unknown"
)

// VolumeSpec describes the persistent storage unit for one tenant.
type VolumeSpec struct {
	// Name is the backend-visible resource name, derived from the slug.
	Name string

	// Region is the placement hint; must match the compute unit's region.
	Region string

	// SizeGB is the requested capacity.
	SizeGB int
}

// Validate checks the spec before any network call.
func (s VolumeSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("volume spec: name is required")
	}
	if s.Region == "" {
		return fmt.Errorf("volume spec: region is required")
	}
	if s.SizeGB <= 0 {
		return fmt.Errorf("volume spec: size must be positive, got %d", s.SizeGB)
	}
	return nil
}

// PortSpec declares one public port of the gateway.
type PortSpec struct {
	Port int
	// TLS requests edge TLS termination where the backend supports it.
	TLS bool
}

// ComputeSpec describes the gateway compute unit.
type ComputeSpec struct {
	Name   string
	Image  string
	Shape  string // backend-specific size class (server type, resource tier)
	Region string

	// VolumeID is the id returned by CreateVolume. The volume is mounted
	// at StateDir inside the unit.
	VolumeID string
	StateDir string

	// Env is injected into the gateway process. Always includes the
	// tenant auth token and state directory path.
	Env map[string]string

	Ports []PortSpec
}

// Validate checks the spec before any network call.
func (s ComputeSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("compute spec: name is required")
	}
	if s.Image == "" {
		return fmt.Errorf("compute spec: image is required")
	}
	if s.Region == "" {
		return fmt.Errorf("compute spec: region is required")
	}
	if s.VolumeID == "" {
		return fmt.Errorf("compute spec: volume id is required")
	}
	if s.StateDir == "" {
		return fmt.Errorf("compute spec: state dir is required")
	}
	if len(s.Ports) == 0 {
		return fmt.Errorf("compute spec: at least one port is required")
	}
	for _, p := range s.Ports {
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("compute spec: invalid port %d", p.Port)
		}
	}
	return nil
}

// BackendRef bundles the backend resource ids recorded for one tenant.
type BackendRef struct {
	ComputeID string
	VolumeID  string
}

// Empty reports whether no backend resources are referenced.
func (r BackendRef) Empty() bool {
	return r.ComputeID == "" && r.VolumeID == ""
}

// Driver is the backend capability set. Implementations map their native
// failures onto the package error taxonomy (see errors.go) and apply their
// own per-operation timeouts; a timed-out call surfaces as a
// ClassUnavailable error because the true backend state is unknown until
// the next Inspect.
type Driver interface {
	// CreateVolume provisions the tenant's persistent volume and returns
	// its backend id. Callers must not call twice for the same tenant
	// without destroying first.
	CreateVolume(ctx context.Context, spec VolumeSpec) (string, error)

	// CreateComputeUnit provisions the gateway compute unit, attached to
	// the volume named in the spec, and returns its backend id.
	CreateComputeUnit(ctx context.Context, spec ComputeSpec) (string, error)

	// BindNetwork makes the compute unit reachable at the desired
	// hostname and returns the effective endpoint URL. Depending on the
	// backend this provisions real ingress or is a deterministic no-op.
	BindNetwork(ctx context.Context, computeID, hostname string) (string, error)

	// Inspect reports the backend's view of the compute unit. A missing
	// unit is ObservedNotFound with a nil error; transient lookup
	// failures are ObservedUnknown with an error.
	Inspect(ctx context.Context, computeID string) (ObservedStatus, error)

	// Start powers on the compute unit. Starting an already-running unit
	// succeeds as a no-op.
	Start(ctx context.Context, computeID string) error

	// Stop powers off the compute unit. Stopping an already-stopped unit
	// succeeds as a no-op.
	Stop(ctx context.Context, computeID string) error

	// Destroy tears down the compute unit, its volume and its network
	// binding. Destroying resources that are already gone is not an
	// error.
	Destroy(ctx context.Context, ref BackendRef) error
}
