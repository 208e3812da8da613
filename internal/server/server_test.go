package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bluefairy/tenantd/internal/driver"
	"github.com/bluefairy/tenantd/internal/orchestrator"
	"github.com/bluefairy/tenantd/internal/store"
)

const testToken = "test-admin-token"

func newTestServer(t *testing.T, drv driver.Driver) (*Server, *orchestrator.Orchestrator) {
	t.Helper()
	st := store.NewMemoryStore()
	spec := orchestrator.GatewaySpec{
		Image:        "ghcr.io/bluefairy/gateway:latest",
		Shape:        "cpx11",
		VolumeSizeGB: 10,
		StateDir:     "/var/lib/gateway",
		Port:         3420,
	}
	orch := orchestrator.New(st, drv, spec, "gw.example.com", "fsn1", zap.NewNop())
	return New(orch, testToken, zap.NewNop()), orch
}

func doJSON(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthzIsOpen(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &driver.Mock{})

	rec := doJSON(t, s.Handler(), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTenantEndpointsRequireToken(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &driver.Mock{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/tenants", `{"owner_ref":"o1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodPost, "/tenants", `{"owner_ref":"o1"}`, "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGetTenant(t *testing.T) {
	t.Parallel()
	s, orch := newTestServer(t, &driver.Mock{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/tenants",
		`{"owner_ref":"owner-1","slug":"acme"}`, testToken)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created store.TenantRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, store.StatusProvisioning, created.Status)
	assert.NotContains(t, rec.Body.String(), "auth_token", "token must not leak over the API")

	orch.Wait()

	rec = doJSON(t, s.Handler(), http.MethodGet, "/tenants/"+created.ID, "", testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.TenantRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, store.StatusRunning, got.Status)
	assert.Equal(t, "https://acme.gw.example.com", got.Endpoint)
}

func TestCreateTenantValidation(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &driver.Mock{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/tenants", `{"slug":"acme"}`, testToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTenantDuplicateOwnerConflicts(t *testing.T) {
	t.Parallel()
	s, orch := newTestServer(t, &driver.Mock{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/tenants", `{"owner_ref":"owner-1"}`, testToken)
	require.Equal(t, http.StatusAccepted, rec.Code)
	orch.Wait()

	rec = doJSON(t, s.Handler(), http.MethodPost, "/tenants", `{"owner_ref":"owner-1"}`, testToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetTenantBySlug(t *testing.T) {
	t.Parallel()
	s, orch := newTestServer(t, &driver.Mock{})

	record, err := orch.Provision(context.Background(), "owner-1", "acme", "")
	require.NoError(t, err)
	orch.Wait()

	rec := doJSON(t, s.Handler(), http.MethodGet, "/slugs/acme", "", testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.TenantRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, record.ID, got.ID)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/slugs/nope", "", testToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOwnerStatus(t *testing.T) {
	t.Parallel()
	s, orch := newTestServer(t, &driver.Mock{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/tenants",
		`{"owner_ref":"owner-1","slug":"acme"}`, testToken)
	require.Equal(t, http.StatusAccepted, rec.Code)
	orch.Wait()

	rec = doJSON(t, s.Handler(), http.MethodGet, "/owners/owner-1/status", "", testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var info orchestrator.StatusInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Ready)
	assert.Equal(t, "https://acme.gw.example.com", info.Endpoint)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/owners/nobody/status", "", testToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLifecycleEndpoints(t *testing.T) {
	t.Parallel()
	s, orch := newTestServer(t, &driver.Mock{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/tenants",
		`{"owner_ref":"owner-1","slug":"acme"}`, testToken)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created store.TenantRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	orch.Wait()

	rec = doJSON(t, s.Handler(), http.MethodPost, "/tenants/"+created.ID+"/stop", "", testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stopped")

	rec = doJSON(t, s.Handler(), http.MethodPost, "/tenants/"+created.ID+"/start", "", testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "running")

	rec = doJSON(t, s.Handler(), http.MethodPost, "/tenants/"+created.ID+"/destroy", "", testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "destroyed")

	// Start after destroy violates the lifecycle.
	rec = doJSON(t, s.Handler(), http.MethodPost, "/tenants/"+created.ID+"/start", "", testToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRetryEndpoint(t *testing.T) {
	t.Parallel()

	fail := true
	mock := &driver.Mock{
		CreateComputeUnitFunc: func(_ context.Context, _ driver.ComputeSpec) (string, error) {
			if fail {
				return "", driver.Unavailable("create server", errors.New("api down"))
			}
			return "compute-1", nil
		},
	}
	s, orch := newTestServer(t, mock)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/tenants",
		`{"owner_ref":"owner-1","slug":"acme"}`, testToken)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created store.TenantRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	orch.Wait()

	fail = false
	rec = doJSON(t, s.Handler(), http.MethodPost, "/tenants/"+created.ID+"/retry", "", testToken)
	require.Equal(t, http.StatusAccepted, rec.Code)
	orch.Wait()

	rec = doJSON(t, s.Handler(), http.MethodGet, "/tenants/"+created.ID, "", testToken)
	assert.Contains(t, rec.Body.String(), "running")

	// Retrying a healthy tenant conflicts.
	rec = doJSON(t, s.Handler(), http.MethodPost, "/tenants/"+created.ID+"/retry", "", testToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBackendFailureLoggedWithRequestID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	core, logs := observer.New(zap.WarnLevel)
	drv := &driver.Mock{
		StartFunc: func(_ context.Context, _ string) error {
			return driver.Unavailable("start", errors.New("api down"))
		},
	}
	st := store.NewMemoryStore()
	orch := orchestrator.New(st, drv, orchestrator.GatewaySpec{
		Image:        "ghcr.io/bluefairy/gateway:latest",
		Shape:        "cpx11",
		VolumeSizeGB: 10,
		StateDir:     "/var/lib/gateway",
		Port:         3420,
	}, "gw.example.com", "fsn1", zap.NewNop())
	s := New(orch, testToken, zap.New(core))

	record, err := orch.Provision(ctx, "owner-1", "acme", "")
	require.NoError(t, err)
	orch.Wait()
	require.NoError(t, orch.Stop(ctx, record.ID))

	rec := doJSON(t, s.Handler(), http.MethodPost, "/tenants/"+record.ID+"/start", "", testToken)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	entries := logs.FilterMessage("backend unavailable").All()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"],
		"backend failures must be traceable to their request")
}

func TestUnknownTenantIs404(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &driver.Mock{})

	rec := doJSON(t, s.Handler(), http.MethodGet, "/tenants/nope", "", testToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &driver.Mock{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))

	// Generated when absent.
	rec = doJSON(t, s.Handler(), http.MethodGet, "/healthz", "", "")
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}
