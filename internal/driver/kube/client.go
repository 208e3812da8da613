// Package kube implements the infrastructure driver on a Kubernetes
// cluster: one Deployment per gateway, a PersistentVolumeClaim for its
// state directory, and a Service plus Ingress for the tenant endpoint.
package kube

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/bluefairy/tenantd/internal/config"
	"github.com/bluefairy/tenantd/internal/driver"
)

const managedByLabel = "tenantd"

// Client implements driver.Driver against a Kubernetes cluster.
type Client struct {
	clientset kubernetes.Interface
	cfg       config.KubeConfig
	timeouts  *config.Timeouts
}

// New builds a Client from the configured kubeconfig path, or from the
// in-cluster service account when the path is empty.
func New(cfg config.KubeConfig, timeouts *config.Timeouts) (*Client, error) {
	var (
		restCfg *rest.Config
		err     error
	)
	if cfg.Kubeconfig != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
	} else {
		restCfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}
	return NewWithClientset(clientset, cfg, timeouts), nil
}

// NewWithClientset wires an existing clientset; tests use this with a
// fake clientset.
func NewWithClientset(clientset kubernetes.Interface, cfg config.KubeConfig, timeouts *config.Timeouts) *Client {
	return &Client{clientset: clientset, cfg: cfg, timeouts: timeouts}
}

var _ driver.Driver = (*Client)(nil)

func labels(name string) map[string]string {
	return map[string]string{
		"app":        name,
		"managed-by": managedByLabel,
	}
}
