// Package wizard provides the interactive setup for a new tenantd
// deployment. It uses charmbracelet/huh to collect the answers and
// writes a starter configuration file; secrets are referenced by
// environment variable, never written to disk.
package wizard

import (
	"context"
	"fmt"
)

// Result holds the answers from the interactive wizard.
type Result struct {
	// Backend
	BackendKind string // "hcloud" or "kubernetes"
	BaseDomain  string
	Region      string

	// HCloud backend
	ServerType string
	Image      string
	SSHKeys    []string

	// Kubernetes backend
	Namespace      string
	ContainerImage string
	StorageClass   string
	IngressClass   string

	// Shared sizing
	VolumeSizeGB int

	// Store
	StoreDriver string // "postgres" or "memory"

	// Gateway contract
	GatewayPort int
}

// Run walks through the question groups and returns the collected
// answers. The context cancels the forms on Ctrl+C.
func Run(ctx context.Context) (*Result, error) {
	result := &Result{
		GatewayPort:  3420,
		VolumeSizeGB: 10,
	}

	if err := runBackendGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	switch result.BackendKind {
	case BackendHCloud:
		if err := runHCloudGroup(ctx, result); err != nil {
			return nil, fmt.Errorf("hcloud: %w", err)
		}
	case BackendKubernetes:
		if err := runKubernetesGroup(ctx, result); err != nil {
			return nil, fmt.Errorf("kubernetes: %w", err)
		}
	}

	if err := runStoreGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	return result, nil
}
