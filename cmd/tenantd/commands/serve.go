package commands

import (
	"github.com/spf13/cobra"

	"github.com/bluefairy/tenantd/cmd/tenantd/handlers"
)

// Serve returns the command that runs the orchestrator daemon: the HTTP
// API plus the background reconcile loop.
func Serve() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator API and reconcile loop",
		Long: `Run the orchestrator daemon.

Serves the tenant HTTP API, resumes any provisioning workflows that a
previous process left unfinished, and reconciles stored tenant state
against the backend on a timer until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "tenantd.yaml", "Path to configuration file")
	return cmd
}
