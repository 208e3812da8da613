package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/bluefairy/tenantd/internal/config/wizard"
)

// Function variables replaced in tests.
var (
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}
	runWizard   = wizard.Run
	writeConfig = wizard.WriteConfig
)

// Init runs the configuration wizard and writes the result to a file.
func Init(ctx context.Context, outputPath string) error {
	if fileExists(outputPath) {
		fmt.Printf("Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	fmt.Println()
	fmt.Println("tenantd - per-tenant gateway orchestrator")
	fmt.Println("=========================================")
	fmt.Println()

	result, err := runWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	if err := writeConfig(result, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("\nWrote %s\n", outputPath)
	fmt.Println("Next steps:")
	fmt.Println("  1. Export the secret environment variables named in the file header")
	fmt.Println("  2. Run: tenantd serve --config", outputPath)
	return nil
}
