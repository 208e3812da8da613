package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id, owner, slug string) *TenantRecord {
	return &TenantRecord{
		ID:       id,
		OwnerRef: owner,
		Slug:     slug,
		Status:   StatusProvisioning,
		Region:   "fsn1",
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	rec := newRecord("t1", "owner-1", "acme-ab12")
	require.NoError(t, s.Create(ctx, rec))
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", got.OwnerRef)
	assert.Equal(t, StatusProvisioning, got.Status)

	byOwner, err := s.GetByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "t1", byOwner.ID)

	bySlug, err := s.GetBySlug(ctx, "acme-ab12")
	require.NoError(t, err)
	assert.Equal(t, "t1", bySlug.ID)

	_, err = s.Get(ctx, "nope")
	assert.True(t, IsNotFound(err))
}

func TestMemoryStoreDuplicateOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, newRecord("t1", "owner-1", "one")))
	err := s.Create(ctx, newRecord("t2", "owner-1", "two"))
	assert.ErrorIs(t, err, ErrDuplicateOwner)
}

func TestMemoryStoreSlugNeverRecycled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, newRecord("t1", "owner-1", "acme")))
	require.NoError(t, s.UpdateStatus(ctx, "t1", StatusDestroyed, Fields{ClearBackend: true}))

	// The slug stays reserved even though the tenant is destroyed.
	err := s.Create(ctx, newRecord("t2", "owner-2", "acme"))
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestMemoryStoreConcurrentCreateOneWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Create(ctx, newRecord(fmt.Sprintf("t-%d", i), "owner-1", "same-slug"))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateOwner)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent create may succeed")
}

func TestMemoryStoreUpdateStatusGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, newRecord("t1", "owner-1", "acme")))

	endpoint := "https://acme.gw.example.com"
	require.NoError(t, s.UpdateStatus(ctx, "t1", StatusRunning, Fields{Endpoint: &endpoint}))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, endpoint, got.Endpoint)

	// Self-transition is rejected, record untouched.
	err = s.UpdateStatus(ctx, "t1", StatusRunning, Fields{})
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, StatusRunning, ite.From)
	assert.Equal(t, StatusRunning, ite.To)

	err = s.UpdateStatus(ctx, "missing", StatusRunning, Fields{})
	assert.True(t, IsNotFound(err))
}

func TestMemoryStoreConcurrentDestroyOneTransition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	rec := newRecord("t1", "owner-1", "acme")
	rec.Status = StatusRunning
	require.NoError(t, s.Create(ctx, rec))

	const racers = 16
	var wg sync.WaitGroup
	var successes, invalid int
	var mu sync.Mutex

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.UpdateStatus(ctx, "t1", StatusDestroyed, Fields{ClearBackend: true})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case IsInvalidTransition(err):
				invalid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "only one racer may apply the transition")
	assert.Equal(t, racers-1, invalid)
	assert.Equal(t, 1, s.TransitionCount("t1"))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusDestroyed, got.Status)
	assert.False(t, got.HasBackend())
}

func TestMemoryStoreUpdateFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, newRecord("t1", "owner-1", "acme")))

	vol := "vol-123"
	require.NoError(t, s.UpdateFields(ctx, "t1", Fields{VolumeID: &vol}))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "vol-123", got.VolumeID)
	assert.Equal(t, StatusProvisioning, got.Status, "UpdateFields must not change status")
	assert.Equal(t, 0, s.TransitionCount("t1"))
}

func TestMemoryStoreList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, newRecord("t1", "owner-1", "one")))
	require.NoError(t, s.Create(ctx, newRecord("t2", "owner-2", "two")))
	require.NoError(t, s.UpdateStatus(ctx, "t2", StatusRunning, Fields{}))

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	running, err := s.List(ctx, Filter{Status: StatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "t2", running[0].ID)

	// Mutating a listed clone must not leak into the store.
	running[0].Status = StatusError
	got, err := s.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
}
