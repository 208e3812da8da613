package handlers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluefairy/tenantd/internal/config"
	"github.com/bluefairy/tenantd/internal/store"
)

func writeTestConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenantd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))
	return path
}

func TestNewAppWithMemoryStore(t *testing.T) {
	t.Setenv("HCLOUD_TOKEN", "test-token")

	path := writeTestConfig(t, `
backend:
  kind: hcloud
  base_domain: gw.example.com
hcloud:
  image: debian-12
store:
  driver: memory
log:
  environment: development
`)

	a, err := newApp(path)
	require.NoError(t, err)
	defer a.close()

	assert.NotNil(t, a.orch)
	assert.Equal(t, config.BackendHCloud, a.cfg.Backend.Kind)
}

func TestNewAppRejectsBrokenConfig(t *testing.T) {
	path := writeTestConfig(t, "backend:\n  kind: vsphere\n")
	_, err := newApp(path)
	assert.Error(t, err)

	_, err = newApp(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildStore(t *testing.T) {
	st, err := buildStore(&config.Config{Store: config.StoreConfig{Driver: config.StoreMemory}})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, st)

	_, err = buildStore(&config.Config{Store: config.StoreConfig{Driver: "sqlite"}})
	assert.Error(t, err)
}

func TestGatewayImageAndVolumeSize(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{Kind: config.BackendHCloud},
		HCloud:  config.HCloudConfig{Image: "debian-12", VolumeSizeGB: 10},
		Kube:    config.KubeConfig{Image: "ghcr.io/x:y", VolumeSizeGB: 20},
	}
	assert.Equal(t, "debian-12", gatewayImage(cfg))
	assert.Equal(t, 10, volumeSize(cfg))

	cfg.Backend.Kind = config.BackendKubernetes
	assert.Equal(t, "ghcr.io/x:y", gatewayImage(cfg))
	assert.Equal(t, 20, volumeSize(cfg))
}
