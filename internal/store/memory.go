package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation. It backs tests and
// single-node development; production deployments use the postgres store.
// All operations are guarded by one mutex, which gives UpdateStatus the
// required read-modify-write atomicity.
type MemoryStore struct {
	mu       sync.Mutex
	byID     map[string]*TenantRecord
	byOwner  map[string]string // ownerRef -> id
	bySlug   map[string]string // slug -> id, never released
	now      func() time.Time
	counters map[string]int // id -> successful transitions
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*TenantRecord),
		byOwner:  make(map[string]string),
		bySlug:   make(map[string]string),
		now:      time.Now,
		counters: make(map[string]int),
	}
}

var _ Store = (*MemoryStore)(nil)

// Create inserts a new record.
func (s *MemoryStore) Create(_ context.Context, record *TenantRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byOwner[record.OwnerRef]; exists {
		return ErrDuplicateOwner
	}
	if _, exists := s.bySlug[record.Slug]; exists {
		return ErrDuplicateSlug
	}

	r := record.Clone()
	now := s.now()
	r.CreatedAt = now
	r.UpdatedAt = now

	s.byID[r.ID] = r
	s.byOwner[r.OwnerRef] = r.ID
	s.bySlug[r.Slug] = r.ID

	record.CreatedAt = r.CreatedAt
	record.UpdatedAt = r.UpdatedAt
	return nil
}

// Get returns the record by id.
func (s *MemoryStore) Get(_ context.Context, id string) (*TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// GetByOwner returns the record owned by ownerRef.
func (s *MemoryStore) GetByOwner(_ context.Context, ownerRef string) (*TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byOwner[ownerRef]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// GetBySlug returns the record with the given slug.
func (s *MemoryStore) GetBySlug(_ context.Context, slug string) (*TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// UpdateStatus applies a guarded status transition.
func (s *MemoryStore) UpdateStatus(_ context.Context, id string, next Status, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(r.Status, next) {
		return &InvalidTransitionError{ID: id, From: r.Status, To: next}
	}

	r.Status = next
	fields.apply(r)
	r.UpdatedAt = s.now()
	s.counters[id]++
	return nil
}

// UpdateFields applies field changes without touching status.
func (s *MemoryStore) UpdateFields(_ context.Context, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	fields.apply(r)
	r.UpdatedAt = s.now()
	return nil
}

// List returns all records matching the filter.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*TenantRecord
	for _, r := range s.byID {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// TransitionCount returns how many status transitions have been applied
// to the record. Test instrumentation.
func (s *MemoryStore) TransitionCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[id]
}
