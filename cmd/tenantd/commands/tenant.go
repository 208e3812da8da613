package commands

import (
	"github.com/spf13/cobra"

	"github.com/bluefairy/tenantd/cmd/tenantd/handlers"
)

// Provision returns the command that registers a tenant and runs the
// provisioning workflow to completion.
func Provision() *cobra.Command {
	var (
		configPath string
		slug       string
		region     string
	)

	cmd := &cobra.Command{
		Use:   "provision <owner-ref>",
		Short: "Provision a gateway for a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Provision(cmd.Context(), configPath, args[0], slug, region)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "tenantd.yaml", "Path to configuration file")
	cmd.Flags().StringVar(&slug, "slug", "", "Desired slug (generated from the owner ref when empty)")
	cmd.Flags().StringVar(&region, "region", "", "Placement region (backend default when empty)")
	return cmd
}

// Status returns the command that prints a tenant's status by owner.
func Status() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status <owner-ref>",
		Short: "Show the gateway status for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Status(cmd.Context(), configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "tenantd.yaml", "Path to configuration file")
	return cmd
}

func lifecycleCommand(use, short string, op handlers.LifecycleOp) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   use + " <tenant-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Lifecycle(cmd.Context(), configPath, args[0], op)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "tenantd.yaml", "Path to configuration file")
	return cmd
}

// Start returns the command that powers on a stopped tenant gateway.
func Start() *cobra.Command {
	return lifecycleCommand("start", "Start a stopped tenant gateway", handlers.OpStart)
}

// Stop returns the command that powers off a running tenant gateway.
func Stop() *cobra.Command {
	return lifecycleCommand("stop", "Stop a running tenant gateway", handlers.OpStop)
}

// Destroy returns the command that tears down a tenant's resources.
func Destroy() *cobra.Command {
	return lifecycleCommand("destroy", "Destroy a tenant's gateway and volume", handlers.OpDestroy)
}

// Retry returns the command that re-runs provisioning for a tenant in
// error.
func Retry() *cobra.Command {
	return lifecycleCommand("retry", "Retry provisioning for a tenant in error", handlers.OpRetry)
}

// Reconcile returns the command that syncs one tenant's stored status
// with the backend.
func Reconcile() *cobra.Command {
	return lifecycleCommand("reconcile", "Reconcile a tenant against the backend", handlers.OpReconcile)
}

// Recover returns the command that resumes stale provisioning attempts.
func Recover() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Resume provisioning workflows abandoned by a crashed process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Recover(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "tenantd.yaml", "Path to configuration file")
	return cmd
}
