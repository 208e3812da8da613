package commands

import (
	"github.com/spf13/cobra"

	"github.com/bluefairy/tenantd/cmd/tenantd/handlers"
)

// Init returns the command for interactively creating a configuration.
//
// Flags:
//
//	--output, -o: Path to output file (default "tenantd.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a tenantd configuration",
		Long: `Interactively create a tenantd configuration file.

This command asks about:

  - The infrastructure backend (Hetzner Cloud or Kubernetes)
  - The base domain tenant endpoints live under
  - Backend sizing (server type or resource requests, volume size)
  - The tenant record store (Postgres or in-memory)

Secrets are never written to the file; the generated header names the
environment variables that carry them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "tenantd.yaml", "Output file path")
	return cmd
}
