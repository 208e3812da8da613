// Package config loads and validates the orchestrator configuration.
//
// Configuration comes from a YAML file with defaults applied on load.
// Secrets (cloud tokens, the admin token, object storage keys) may be
// supplied via environment variables instead of the file, so the file can
// be committed without credentials.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	BackendHCloud     = "hcloud"
	BackendKubernetes = "kubernetes"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Backend   BackendConfig   `yaml:"backend"`
	HCloud    HCloudConfig    `yaml:"hcloud"`
	Kube      KubeConfig      `yaml:"kubernetes"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// AdminToken protects the lifecycle endpoints. Env: TENANTD_ADMIN_TOKEN.
	AdminToken string `yaml:"admin_token"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level"`       // debug|info|warn|error
	Environment string `yaml:"environment"` // production|development
}

// StoreConfig configures the tenant record store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // postgres|memory
	// DSN is the Postgres connection string. Env: TENANTD_STORE_DSN.
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// BackendConfig selects and parameterizes the infrastructure backend.
type BackendConfig struct {
	Kind          string `yaml:"kind"` // hcloud|kubernetes
	DefaultRegion string `yaml:"default_region"`
	// BaseDomain is the wildcard domain tenant endpoints live under,
	// e.g. gw.example.com -> https://<slug>.gw.example.com.
	BaseDomain string `yaml:"base_domain"`
}

// HCloudConfig parameterizes the Hetzner Cloud backend.
type HCloudConfig struct {
	// Token is the API token. Env: HCLOUD_TOKEN.
	Token        string   `yaml:"token"`
	ServerType   string   `yaml:"server_type"`
	Image        string   `yaml:"image"`
	VolumeSizeGB int      `yaml:"volume_size_gb"`
	// SSHKeys are provider-side SSH key names attached to gateway
	// servers for operator break-glass access.
	SSHKeys []string `yaml:"ssh_keys"`
}

// KubeConfig parameterizes the Kubernetes backend.
type KubeConfig struct {
	Kubeconfig   string `yaml:"kubeconfig"` // empty = in-cluster
	Namespace    string `yaml:"namespace"`
	Image        string `yaml:"image"`
	StorageClass string `yaml:"storage_class"`
	IngressClass string `yaml:"ingress_class"`
	VolumeSizeGB int    `yaml:"volume_size_gb"`
	CPURequest   string `yaml:"cpu_request"`
	MemRequest   string `yaml:"mem_request"`
}

// GatewayConfig describes the gateway process contract.
type GatewayConfig struct {
	// StateDir is where the tenant volume is mounted inside the unit.
	StateDir string `yaml:"state_dir"`
	Port     int    `yaml:"port"`
}

// ReconcileConfig tunes the background reconcile loop and recovery scan.
type ReconcileConfig struct {
	Interval               Duration `yaml:"interval"`
	Workers                int      `yaml:"workers"`
	StaleProvisioningAfter Duration `yaml:"stale_provisioning_after"`
}

// ArchiveConfig configures audit export of destroyed tenant records to
// S3-compatible object storage.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
	// AccessKey/SecretKey env: TENANTD_ARCHIVE_ACCESS_KEY / TENANTD_ARCHIVE_SECRET_KEY.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// LoadFile reads, defaults and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(data)
}

// Load parses configuration from raw YAML.
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Environment == "" {
		c.Log.Environment = "production"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StorePostgres
	}
	if c.Store.MaxOpenConns == 0 {
		c.Store.MaxOpenConns = 10
	}
	if c.Store.MaxIdleConns == 0 {
		c.Store.MaxIdleConns = 5
	}
	if c.Backend.Kind == "" {
		c.Backend.Kind = BackendHCloud
	}
	if c.Backend.DefaultRegion == "" {
		c.Backend.DefaultRegion = "fsn1"
	}
	if c.HCloud.ServerType == "" {
		c.HCloud.ServerType = "cpx11"
	}
	if c.HCloud.VolumeSizeGB == 0 {
		c.HCloud.VolumeSizeGB = 10
	}
	if c.Kube.Namespace == "" {
		c.Kube.Namespace = "gateways"
	}
	if c.Kube.VolumeSizeGB == 0 {
		c.Kube.VolumeSizeGB = 10
	}
	if c.Kube.CPURequest == "" {
		c.Kube.CPURequest = "250m"
	}
	if c.Kube.MemRequest == "" {
		c.Kube.MemRequest = "512Mi"
	}
	if c.Gateway.StateDir == "" {
		c.Gateway.StateDir = "/var/lib/gateway"
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = 3420
	}
	if c.Reconcile.Interval == 0 {
		c.Reconcile.Interval = Duration(defaultReconcileInterval)
	}
	if c.Reconcile.Workers == 0 {
		c.Reconcile.Workers = 4
	}
	if c.Reconcile.StaleProvisioningAfter == 0 {
		c.Reconcile.StaleProvisioningAfter = Duration(defaultStaleProvisioning)
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HCLOUD_TOKEN"); v != "" {
		c.HCloud.Token = v
	}
	if v := os.Getenv("TENANTD_ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := os.Getenv("TENANTD_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("TENANTD_ARCHIVE_ACCESS_KEY"); v != "" {
		c.Archive.AccessKey = v
	}
	if v := os.Getenv("TENANTD_ARCHIVE_SECRET_KEY"); v != "" {
		c.Archive.SecretKey = v
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Backend.BaseDomain == "" {
		return fmt.Errorf("backend.base_domain is required")
	}
	switch c.Backend.Kind {
	case BackendHCloud:
		if c.HCloud.Token == "" {
			return fmt.Errorf("hcloud.token (or HCLOUD_TOKEN) is required for the hcloud backend")
		}
		if c.HCloud.Image == "" {
			return fmt.Errorf("hcloud.image is required for the hcloud backend")
		}
	case BackendKubernetes:
		if c.Kube.Image == "" {
			return fmt.Errorf("kubernetes.image is required for the kubernetes backend")
		}
	default:
		return fmt.Errorf("unknown backend kind: %s", c.Backend.Kind)
	}

	switch c.Store.Driver {
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn (or TENANTD_STORE_DSN) is required for the postgres store")
		}
	case StoreMemory:
		// nothing to check; dev only
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" || c.Archive.Endpoint == "" {
			return fmt.Errorf("archive.bucket and archive.endpoint are required when archive is enabled")
		}
	}
	return nil
}
