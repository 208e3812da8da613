// Package main is the entry point for the tenantd CLI.
//
// tenantd provisions and operates one isolated gateway instance per
// tenant: a compute unit, a persistent volume and a public endpoint,
// backed by Hetzner Cloud or Kubernetes.
//
// Commands: serve, init, provision, status, start, stop, destroy,
// retry, reconcile, recover.
//
// For detailed usage information, run:
//
//	tenantd --help
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/bluefairy/tenantd/cmd/tenantd/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A .env in the working directory is a convenience for development;
	// absence is not an error.
	_ = godotenv.Load()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
