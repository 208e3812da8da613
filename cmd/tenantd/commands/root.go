// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated
// to handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the tenantd CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenantd",
		Short: "Provision and operate per-tenant gateway instances",
	}

	cmd.AddCommand(Serve())
	cmd.AddCommand(Init())

	cmd.AddCommand(Provision())
	cmd.AddCommand(Status())
	cmd.AddCommand(Start())
	cmd.AddCommand(Stop())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Retry())
	cmd.AddCommand(Reconcile())
	cmd.AddCommand(Recover())

	cmd.AddCommand(Version())

	return cmd
}
