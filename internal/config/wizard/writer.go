package wizard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape written by the wizard. It mirrors the
// config package's file format but only carries the fields the wizard
// asks about; everything else falls back to load-time defaults.
type fileConfig struct {
	Backend backendSection  `yaml:"backend"`
	HCloud  *hcloudSection  `yaml:"hcloud,omitempty"`
	Kube    *kubeSection    `yaml:"kubernetes,omitempty"`
	Store   storeSection    `yaml:"store"`
	Gateway *gatewaySection `yaml:"gateway,omitempty"`
}

type backendSection struct {
	Kind          string `yaml:"kind"`
	DefaultRegion string `yaml:"default_region,omitempty"`
	BaseDomain    string `yaml:"base_domain"`
}

type hcloudSection struct {
	ServerType   string   `yaml:"server_type"`
	Image        string   `yaml:"image"`
	VolumeSizeGB int      `yaml:"volume_size_gb"`
	SSHKeys      []string `yaml:"ssh_keys,omitempty"`
}

type kubeSection struct {
	Namespace    string `yaml:"namespace"`
	Image        string `yaml:"image"`
	StorageClass string `yaml:"storage_class,omitempty"`
	IngressClass string `yaml:"ingress_class,omitempty"`
	VolumeSizeGB int    `yaml:"volume_size_gb"`
}

type storeSection struct {
	Driver string `yaml:"driver"`
}

type gatewaySection struct {
	Port int `yaml:"port,omitempty"`
}

// WriteConfig renders the wizard result as a commented YAML file.
// Secrets are not written; the header names the environment variables
// that carry them.
func WriteConfig(result *Result, outputPath string) error {
	cfg := buildFileConfig(result)

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(header(result))
	sb.WriteString("\n")
	sb.Write(yamlBytes)

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func buildFileConfig(result *Result) *fileConfig {
	cfg := &fileConfig{
		Backend: backendSection{
			Kind:          result.BackendKind,
			DefaultRegion: result.Region,
			BaseDomain:    result.BaseDomain,
		},
		Store: storeSection{Driver: result.StoreDriver},
	}

	switch result.BackendKind {
	case BackendHCloud:
		cfg.HCloud = &hcloudSection{
			ServerType:   result.ServerType,
			Image:        result.Image,
			VolumeSizeGB: result.VolumeSizeGB,
			SSHKeys:      result.SSHKeys,
		}
	case BackendKubernetes:
		cfg.Kube = &kubeSection{
			Namespace:    result.Namespace,
			Image:        result.ContainerImage,
			StorageClass: result.StorageClass,
			IngressClass: result.IngressClass,
			VolumeSizeGB: result.VolumeSizeGB,
		}
	}

	if result.GatewayPort != 0 && result.GatewayPort != 3420 {
		cfg.Gateway = &gatewaySection{Port: result.GatewayPort}
	}
	return cfg
}

func header(result *Result) string {
	var sb strings.Builder
	sb.WriteString("# tenantd configuration\n")
	sb.WriteString(fmt.Sprintf("# Generated by tenantd init on %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString("#\n")
	sb.WriteString("# Secrets are read from the environment:\n")
	if result.BackendKind == BackendHCloud {
		sb.WriteString("#   HCLOUD_TOKEN            Hetzner Cloud API token\n")
	}
	sb.WriteString("#   TENANTD_ADMIN_TOKEN     bearer token for the HTTP API\n")
	if result.StoreDriver == "postgres" {
		sb.WriteString("#   TENANTD_STORE_DSN       postgres connection string\n")
	}
	return sb.String()
}
