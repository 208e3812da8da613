// Package store defines the tenant record model and the durable store
// contract that the provisioning workflow and lifecycle controller share.
//
// The store is the single source of truth for tenant state. All status
// changes go through UpdateStatus, which is a compare-and-swap keyed on the
// record id: a transition is applied only if the current status permits it.
// That guard is the sole serialization mechanism between concurrent
// operations on the same tenant.
package store

import (
	"time"
)

// TenantRecord is the durable state of one tenant's gateway. Exactly one
// record exists per owner; slugs are globally unique and never recycled,
// even after the tenant is destroyed.
type TenantRecord struct {
	// ID is an opaque stable identifier generated at registration.
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// OwnerRef references the owning user or team. The store only holds
	// the key; the referenced entity lives elsewhere.
	OwnerRef string `gorm:"uniqueIndex;size:128;not null" json:"owner_ref"`

	// Slug is the short URL-safe name the tenant's endpoint is derived
	// from. Immutable after creation.
	Slug string `gorm:"uniqueIndex;size:64;not null" json:"slug"`

	Status Status `gorm:"index;size:16;not null" json:"status"`

	// Region is a placement hint, immutable after creation.
	Region string `gorm:"size:32" json:"region"`

	// VolumeID and ComputeID are the backend identifiers assigned by the
	// infrastructure driver as provisioning steps complete. Each is
	// write-once per provisioning attempt and cleared only on destroy.
	VolumeID  string `gorm:"size:128" json:"volume_id,omitempty"`
	ComputeID string `gorm:"size:128" json:"compute_id,omitempty"`

	// Endpoint is the externally reachable address, cached after network
	// binding. It is derivable from the slug and base domain.
	Endpoint string `gorm:"size:255" json:"endpoint,omitempty"`

	// AuthToken is the secret the gateway process uses to authenticate
	// inbound connections. Generated once at provisioning time and handed
	// to the driver as an environment value.
	AuthToken string `gorm:"size:128" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasBackend reports whether any backend resource ids are recorded.
func (r *TenantRecord) HasBackend() bool {
	return r.VolumeID != "" || r.ComputeID != ""
}

// Clone returns a deep copy so callers cannot mutate store-held state.
func (r *TenantRecord) Clone() *TenantRecord {
	c := *r
	return &c
}

// Fields is the set of optional record mutations applied alongside a
// status transition or an incremental save during provisioning. Nil
// pointers leave the column untouched.
type Fields struct {
	VolumeID  *string
	ComputeID *string
	Endpoint  *string
	AuthToken *string

	// ClearBackend drops volume/compute/endpoint ids. Set on destroy.
	ClearBackend bool
}

func (f Fields) apply(r *TenantRecord) {
	if f.VolumeID != nil {
		r.VolumeID = *f.VolumeID
	}
	if f.ComputeID != nil {
		r.ComputeID = *f.ComputeID
	}
	if f.Endpoint != nil {
		r.Endpoint = *f.Endpoint
	}
	if f.AuthToken != nil {
		r.AuthToken = *f.AuthToken
	}
	if f.ClearBackend {
		r.VolumeID = ""
		r.ComputeID = ""
		r.Endpoint = ""
	}
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status Status

	// UpdatedBefore matches records whose last update is older than the
	// given instant. Used by the recovery scan to find stale provisioning
	// attempts.
	UpdatedBefore time.Time
}

// Matches reports whether the record satisfies the filter.
func (f Filter) Matches(r *TenantRecord) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.UpdatedBefore.IsZero() && !r.UpdatedAt.Before(f.UpdatedBefore) {
		return false
	}
	return true
}
