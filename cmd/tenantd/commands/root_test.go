package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "tenantd", cmd.Use)
}

func TestRootHasSubcommands(t *testing.T) {
	cmd := Root()

	expected := []string{
		"serve",
		"init",
		"provision",
		"status",
		"start",
		"stop",
		"destroy",
		"retry",
		"reconcile",
		"recover",
		"version",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, name := range expected {
		assert.True(t, subcommands[name], "expected subcommand %s not found", name)
	}
}

func TestProvisionFlags(t *testing.T) {
	cmd := Provision()

	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotNil(t, cmd.Flags().Lookup("slug"))
	assert.NotNil(t, cmd.Flags().Lookup("region"))
	assert.Error(t, cmd.Args(cmd, []string{}), "owner ref is required")
	assert.NoError(t, cmd.Args(cmd, []string{"owner-1"}))
}

func TestStartRequiresTenantID(t *testing.T) {
	cmd := Start()
	assert.Error(t, cmd.Args(cmd, []string{}))
	assert.NoError(t, cmd.Args(cmd, []string{"t-1"}))
	assert.Error(t, cmd.Args(cmd, []string{"t-1", "t-2"}))
}
