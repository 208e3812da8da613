package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluefairy/tenantd/internal/config/wizard"
)

func stubInitFactories(t *testing.T) {
	origFileExists := fileExists
	origRunWizard := runWizard
	origWriteConfig := writeConfig
	t.Cleanup(func() {
		fileExists = origFileExists
		runWizard = origRunWizard
		writeConfig = origWriteConfig
	})
}

func TestInitWritesWizardResult(t *testing.T) {
	stubInitFactories(t)

	want := &wizard.Result{
		BackendKind: wizard.BackendHCloud,
		BaseDomain:  "gw.example.com",
	}
	runWizard = func(_ context.Context) (*wizard.Result, error) {
		return want, nil
	}

	var gotResult *wizard.Result
	var gotPath string
	writeConfig = func(result *wizard.Result, outputPath string) error {
		gotResult = result
		gotPath = outputPath
		return nil
	}

	outputPath := filepath.Join(t.TempDir(), "tenantd.yaml")
	require.NoError(t, Init(context.Background(), outputPath))
	assert.Same(t, want, gotResult)
	assert.Equal(t, outputPath, gotPath)
}

func TestInitSurfacesWizardCancel(t *testing.T) {
	stubInitFactories(t)

	runWizard = func(_ context.Context) (*wizard.Result, error) {
		return nil, errors.New("user aborted")
	}

	err := Init(context.Background(), filepath.Join(t.TempDir(), "out.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard canceled")
}

func TestInitSurfacesWriteFailure(t *testing.T) {
	stubInitFactories(t)

	runWizard = func(_ context.Context) (*wizard.Result, error) {
		return &wizard.Result{}, nil
	}
	writeConfig = func(_ *wizard.Result, _ string) error {
		return errors.New("disk full")
	}

	err := Init(context.Background(), filepath.Join(t.TempDir(), "out.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write config")
}
