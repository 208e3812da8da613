package store

import (
	"context"
)

// Store is the durable tenant record store. Implementations must make
// UpdateStatus atomic: concurrent callers racing on the same record must
// serialize through the status guard, with the loser receiving
// ErrInvalidTransition rather than overwriting.
//
// Implementations must not cache records across calls; every transition
// decision reads fresh state.
type Store interface {
	// Create inserts a new record. Fails with ErrDuplicateOwner if the
	// owner already has a record, ErrDuplicateSlug on slug collision.
	Create(ctx context.Context, record *TenantRecord) error

	// Get returns the record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*TenantRecord, error)

	// GetByOwner returns the record owned by ownerRef, or ErrNotFound.
	GetByOwner(ctx context.Context, ownerRef string) (*TenantRecord, error)

	// GetBySlug returns the record with the given slug, or ErrNotFound.
	GetBySlug(ctx context.Context, slug string) (*TenantRecord, error)

	// UpdateStatus transitions the record to next and applies fields in
	// the same atomic write. It fails with ErrNotFound if the id is
	// absent, or ErrInvalidTransition (as *InvalidTransitionError) if the
	// record's current status does not permit the transition.
	UpdateStatus(ctx context.Context, id string, next Status, fields Fields) error

	// UpdateFields applies fields without changing status. Used by the
	// provisioning workflow to persist backend ids incrementally so a
	// crashed attempt can be resumed.
	UpdateFields(ctx context.Context, id string, fields Fields) error

	// List returns all records matching the filter, unordered.
	List(ctx context.Context, filter Filter) ([]*TenantRecord, error)
}
