package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/driver"
	"github.com/bluefairy/tenantd/internal/store"
)

func testGatewaySpec() GatewaySpec {
	return GatewaySpec{
		Image:        "ghcr.io/bluefairy/gateway:latest",
		Shape:        "cpx11",
		VolumeSizeGB: 10,
		StateDir:     "/var/lib/gateway",
		Port:         3420,
	}
}

func newTestOrchestrator(t *testing.T, drv driver.Driver, opts ...Option) (*Orchestrator, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	o := New(st, drv, testGatewaySpec(), "gw.example.com", "fsn1", zap.NewNop(), opts...)
	return o, st
}

func TestProvisionHappyPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mock := &driver.Mock{}
	o, st := newTestOrchestrator(t, mock)

	record, err := o.Provision(ctx, "owner-1", "acme", "")
	require.NoError(t, err)
	assert.Equal(t, store.StatusProvisioning, record.Status)
	assert.Equal(t, "fsn1", record.Region, "default region applied")
	o.Wait()

	got, err := st.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRunning, got.Status)
	assert.Equal(t, "mock-volume", got.VolumeID)
	assert.Equal(t, "mock-compute", got.ComputeID)
	assert.Equal(t, "https://acme.gw.example.com", got.Endpoint)
	assert.NotEmpty(t, got.AuthToken)

	assert.Equal(t, 1, mock.Calls("CreateVolume"))
	assert.Equal(t, 1, mock.Calls("CreateComputeUnit"))
	assert.Equal(t, 1, mock.Calls("BindNetwork"))

	info, err := o.GetStatus(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, info.Ready)
	assert.Equal(t, "https://acme.gw.example.com", info.Endpoint)
}

func TestProvisionRejectsDuplicateOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	o, _ := newTestOrchestrator(t, &driver.Mock{})

	_, err := o.Provision(ctx, "owner-1", "first", "")
	require.NoError(t, err)
	o.Wait()

	_, err = o.Provision(ctx, "owner-1", "second", "")
	assert.ErrorIs(t, err, store.ErrDuplicateOwner)
}

func TestProvisionGeneratesSlugWhenEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	o, _ := newTestOrchestrator(t, &driver.Mock{})

	record, err := o.Provision(ctx, "owner with spaces", "", "nbg1")
	require.NoError(t, err)
	o.Wait()

	assert.NotEmpty(t, record.Slug)
	assert.Equal(t, "nbg1", record.Region)
}

// slugCollideStore rejects the first n Create calls with a slug
// collision, then delegates.
type slugCollideStore struct {
	store.Store
	remaining int
	seen      []string
}

func (s *slugCollideStore) Create(ctx context.Context, record *store.TenantRecord) error {
	s.seen = append(s.seen, record.Slug)
	if s.remaining > 0 {
		s.remaining--
		return store.ErrDuplicateSlug
	}
	return s.Store.Create(ctx, record)
}

func TestProvisionRederivesSlugOnCollision(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := &slugCollideStore{Store: store.NewMemoryStore(), remaining: 1}
	o := New(st, &driver.Mock{}, testGatewaySpec(), "gw.example.com", "fsn1", zap.NewNop())

	record, err := o.Provision(ctx, "owner-1", "", "")
	require.NoError(t, err)
	o.Wait()

	require.Len(t, st.seen, 2)
	assert.NotEqual(t, st.seen[0], st.seen[1], "collided slug must be re-derived, not retried")
	assert.Equal(t, st.seen[1], record.Slug)
}

func TestProvisionExplicitSlugCollisionSurfaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := &slugCollideStore{Store: store.NewMemoryStore(), remaining: 1}
	o := New(st, &driver.Mock{}, testGatewaySpec(), "gw.example.com", "fsn1", zap.NewNop())

	_, err := o.Provision(ctx, "owner-1", "acme", "")
	assert.ErrorIs(t, err, store.ErrDuplicateSlug, "a caller-chosen slug is never rewritten")
	assert.Equal(t, []string{"acme"}, st.seen)
}

func TestProvisionStepFailureLeavesPartialResources(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mock := &driver.Mock{
		CreateComputeUnitFunc: func(_ context.Context, _ driver.ComputeSpec) (string, error) {
			return "", driver.Unavailable("create server", errors.New("api down"))
		},
	}
	o, st := newTestOrchestrator(t, mock)

	record, err := o.Provision(ctx, "owner-1", "acme", "")
	require.NoError(t, err)
	o.Wait()

	got, err := st.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusError, got.Status)
	assert.Equal(t, "mock-volume", got.VolumeID, "completed step result kept")
	assert.Empty(t, got.ComputeID)
	assert.Equal(t, 0, mock.Calls("Destroy"), "partial resources are not auto-destroyed")
}

func TestRetryResumesFromRecordedStep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fail := true
	mock := &driver.Mock{
		CreateComputeUnitFunc: func(_ context.Context, _ driver.ComputeSpec) (string, error) {
			if fail {
				return "", driver.Unavailable("create server", errors.New("api down"))
			}
			return "compute-2nd", nil
		},
	}
	o, st := newTestOrchestrator(t, mock)

	record, err := o.Provision(ctx, "owner-1", "acme", "")
	require.NoError(t, err)
	o.Wait()

	got, err := st.Get(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusError, got.Status)
	firstToken := got.AuthToken

	fail = false
	require.NoError(t, o.Retry(ctx, record.ID))
	o.Wait()

	got, err = st.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRunning, got.Status)
	assert.Equal(t, "compute-2nd", got.ComputeID)
	assert.Equal(t, firstToken, got.AuthToken, "auth token survives the retry")
	assert.Equal(t, 1, mock.Calls("CreateVolume"), "completed volume step not repeated")
	assert.Equal(t, 2, mock.Calls("CreateComputeUnit"))
}

func TestRetryRequiresErrorStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	o, _ := newTestOrchestrator(t, &driver.Mock{})

	record, err := o.Provision(ctx, "owner-1", "acme", "")
	require.NoError(t, err)
	o.Wait()

	err = o.Retry(ctx, record.ID)
	require.Error(t, err)

	err = o.Retry(ctx, "missing")
	assert.True(t, store.IsNotFound(err))
}

func TestProvisionRecordsComputeIDOnWaitFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// The backend created the unit but the readiness wait failed. The id
	// must still land on the record so resumption can find the unit.
	mock := &driver.Mock{
		CreateComputeUnitFunc: func(_ context.Context, _ driver.ComputeSpec) (string, error) {
			return "orphan-compute", driver.Unavailable("wait running", errors.New("timeout"))
		},
	}
	o, st := newTestOrchestrator(t, mock)

	record, err := o.Provision(ctx, "owner-1", "acme", "")
	require.NoError(t, err)
	o.Wait()

	got, err := st.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusError, got.Status)
	assert.Equal(t, "orphan-compute", got.ComputeID)
}

func TestTransitionHookObservesChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	type hop struct{ from, to store.Status }
	var mu sync.Mutex
	var hops []hop
	hook := func(_ string, from, to store.Status) {
		mu.Lock()
		defer mu.Unlock()
		hops = append(hops, hop{from, to})
	}

	o, _ := newTestOrchestrator(t, &driver.Mock{}, WithTransitionHook(hook))

	record, err := o.Provision(ctx, "owner-1", "acme", "")
	require.NoError(t, err)
	o.Wait()
	require.NoError(t, o.Stop(ctx, record.ID))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []hop{
		{store.StatusProvisioning, store.StatusRunning},
		{store.StatusRunning, store.StatusStopped},
	}, hops)
}
