package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalHCloud = `
backend:
  kind: hcloud
  base_domain: gw.example.com
hcloud:
  token: test-token
  image: ghcr.io/bluefairy/gateway:latest
store:
  driver: memory
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]byte(minimalHCloud))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "production", cfg.Log.Environment)
	assert.Equal(t, "fsn1", cfg.Backend.DefaultRegion)
	assert.Equal(t, "cpx11", cfg.HCloud.ServerType)
	assert.Equal(t, 10, cfg.HCloud.VolumeSizeGB)
	assert.Equal(t, "/var/lib/gateway", cfg.Gateway.StateDir)
	assert.Equal(t, 3420, cfg.Gateway.Port)
	assert.Equal(t, 60*time.Second, cfg.Reconcile.Interval.Std())
	assert.Equal(t, 4, cfg.Reconcile.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Reconcile.StaleProvisioningAfter.Std())
}

func TestLoadValidatesBackend(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing base domain",
			yaml:    "backend:\n  kind: hcloud\nhcloud:\n  token: x\n  image: img\nstore:\n  driver: memory\n",
			wantErr: "base_domain",
		},
		{
			name:    "hcloud without token",
			yaml:    "backend:\n  kind: hcloud\n  base_domain: gw.example.com\nhcloud:\n  image: img\nstore:\n  driver: memory\n",
			wantErr: "hcloud.token",
		},
		{
			name:    "hcloud without image",
			yaml:    "backend:\n  kind: hcloud\n  base_domain: gw.example.com\nhcloud:\n  token: x\nstore:\n  driver: memory\n",
			wantErr: "hcloud.image",
		},
		{
			name:    "kubernetes without image",
			yaml:    "backend:\n  kind: kubernetes\n  base_domain: gw.example.com\nstore:\n  driver: memory\n",
			wantErr: "kubernetes.image",
		},
		{
			name:    "unknown backend",
			yaml:    "backend:\n  kind: vsphere\n  base_domain: gw.example.com\nstore:\n  driver: memory\n",
			wantErr: "unknown backend kind",
		},
		{
			name:    "postgres without dsn",
			yaml:    "backend:\n  kind: hcloud\n  base_domain: gw.example.com\nhcloud:\n  token: x\n  image: img\n",
			wantErr: "store.dsn",
		},
		{
			name:    "unknown store driver",
			yaml:    "backend:\n  kind: hcloud\n  base_domain: gw.example.com\nhcloud:\n  token: x\n  image: img\nstore:\n  driver: sqlite\n",
			wantErr: "unknown store driver",
		},
		{
			name:    "archive enabled without bucket",
			yaml:    minimalHCloud + "archive:\n  enabled: true\n",
			wantErr: "archive.bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HCLOUD_TOKEN", "env-token")
	t.Setenv("TENANTD_ADMIN_TOKEN", "env-admin")
	t.Setenv("TENANTD_STORE_DSN", "postgres://env")

	yaml := `
backend:
  kind: hcloud
  base_domain: gw.example.com
hcloud:
  image: img
`
	cfg, err := Load([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.HCloud.Token)
	assert.Equal(t, "env-admin", cfg.Server.AdminToken)
	assert.Equal(t, "postgres://env", cfg.Store.DSN)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
}

func TestLoadParsesDurations(t *testing.T) {
	yaml := minimalHCloud + `
reconcile:
  interval: 30s
  workers: 8
  stale_provisioning_after: 2m
`
	cfg, err := Load([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Reconcile.Interval.Std())
	assert.Equal(t, 8, cfg.Reconcile.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Reconcile.StaleProvisioningAfter.Std())
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	yaml := minimalHCloud + `
reconcile:
  interval: soon
`
	_, err := Load([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load([]byte("backend: [unclosed"))
	assert.Error(t, err)
}
