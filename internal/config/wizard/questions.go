package wizard

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
)

// Backend choices, mirrored from the config package to keep the wizard
// importable without a full Config.
const (
	BackendHCloud     = "hcloud"
	BackendKubernetes = "kubernetes"
)

var (
	errDomainRequired = errors.New("base domain is required")
	errDomainInvalid  = errors.New("base domain must be a DNS name like gw.example.com")
)

var domainRegex = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)

func validateBaseDomain(s string) error {
	if s == "" {
		return errDomainRequired
	}
	if !domainRegex.MatchString(strings.ToLower(s)) {
		return errDomainInvalid
	}
	return nil
}

func runBackendGroup(ctx context.Context, result *Result) error {
	result.BackendKind = BackendHCloud

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Infrastructure Backend").
				Description("Where gateway instances are provisioned").
				Options(
					huh.NewOption("Hetzner Cloud (VM per tenant)", BackendHCloud),
					huh.NewOption("Kubernetes (Deployment per tenant)", BackendKubernetes),
				).
				Value(&result.BackendKind),
			huh.NewInput().
				Title("Base Domain").
				Description("Tenant endpoints become https://<slug>.<base domain>").
				Placeholder("gw.example.com").
				Value(&result.BaseDomain).
				Validate(validateBaseDomain),
		).Title("Backend"),
	).RunWithContext(ctx)
}

func runHCloudGroup(ctx context.Context, result *Result) error {
	result.Region = "fsn1"
	result.ServerType = "cpx11"
	var sshKeysInput string

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Location").
				Description("Hetzner Cloud datacenter").
				Options(
					huh.NewOption("Falkenstein (fsn1)", "fsn1"),
					huh.NewOption("Nuremberg (nbg1)", "nbg1"),
					huh.NewOption("Helsinki (hel1)", "hel1"),
					huh.NewOption("Ashburn (ash)", "ash"),
				).
				Value(&result.Region),
			huh.NewSelect[string]().
				Title("Server Type").
				Description("Size of each tenant's gateway server").
				Options(
					huh.NewOption("CPX11 (2 vCPU, 2 GB)", "cpx11"),
					huh.NewOption("CPX21 (3 vCPU, 4 GB)", "cpx21"),
					huh.NewOption("CPX31 (4 vCPU, 8 GB)", "cpx31"),
				).
				Value(&result.ServerType),
			huh.NewInput().
				Title("Gateway Image").
				Description("OS image or snapshot name for gateway servers").
				Placeholder("debian-12").
				Value(&result.Image),
			huh.NewInput().
				Title("SSH Key Names (Optional)").
				Description("Comma-separated Hetzner SSH key names for break-glass access").
				Value(&sshKeysInput),
		).Title("Hetzner Cloud"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	result.SSHKeys = splitCSV(sshKeysInput)
	return nil
}

func runKubernetesGroup(ctx context.Context, result *Result) error {
	result.Namespace = "gateways"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Namespace").
				Description("Namespace gateway workloads run in").
				Placeholder("gateways").
				Value(&result.Namespace),
			huh.NewInput().
				Title("Gateway Container Image").
				Placeholder("ghcr.io/bluefairy/gateway:latest").
				Value(&result.ContainerImage),
			huh.NewInput().
				Title("Storage Class (Optional)").
				Description("Leave empty for the cluster default").
				Value(&result.StorageClass),
			huh.NewInput().
				Title("Ingress Class (Optional)").
				Placeholder("nginx").
				Value(&result.IngressClass),
		).Title("Kubernetes"),
	).RunWithContext(ctx)
}

func runStoreGroup(ctx context.Context, result *Result) error {
	result.StoreDriver = "postgres"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tenant Record Store").
				Description("Postgres for production, memory for trying things out").
				Options(
					huh.NewOption("PostgreSQL", "postgres"),
					huh.NewOption("In-memory (dev only)", "memory"),
				).
				Value(&result.StoreDriver),
		).Title("Store"),
	).RunWithContext(ctx)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
