// Package handlers implements the execution logic behind the CLI
// commands: assembling the orchestrator from configuration and running
// the requested operation against it.
package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/archive"
	"github.com/bluefairy/tenantd/internal/config"
	"github.com/bluefairy/tenantd/internal/driver"
	"github.com/bluefairy/tenantd/internal/driver/hcloud"
	"github.com/bluefairy/tenantd/internal/driver/kube"
	"github.com/bluefairy/tenantd/internal/logging"
	"github.com/bluefairy/tenantd/internal/orchestrator"
	"github.com/bluefairy/tenantd/internal/store"
	"github.com/bluefairy/tenantd/internal/store/postgres"
)

// app bundles everything a command needs once configuration is loaded.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	orch *orchestrator.Orchestrator
}

// newApp loads the configuration and wires store, driver, archiver and
// orchestrator together.
func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	st, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	drv, err := buildDriver(cfg)
	if err != nil {
		return nil, err
	}

	var opts []orchestrator.Option
	if cfg.Archive.Enabled {
		archiver, err := archive.New(
			cfg.Archive.Endpoint, cfg.Archive.Region, cfg.Archive.Bucket,
			cfg.Archive.AccessKey, cfg.Archive.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to build archiver: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = archiver.EnsureBucket(ctx)
		cancel()
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestrator.WithArchiver(archiver))
	}

	spec := orchestrator.GatewaySpec{
		Image:        gatewayImage(cfg),
		Shape:        cfg.HCloud.ServerType,
		VolumeSizeGB: volumeSize(cfg),
		StateDir:     cfg.Gateway.StateDir,
		Port:         cfg.Gateway.Port,
	}

	orch := orchestrator.New(st, drv, spec,
		cfg.Backend.BaseDomain, cfg.Backend.DefaultRegion, log, opts...)

	return &app{cfg: cfg, log: log, orch: orch}, nil
}

// close flushes the logger after all background work is done.
func (a *app) close() {
	a.orch.Wait()
	_ = a.log.Sync()
}

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		return postgres.Open(cfg.Store.DSN, postgres.Options{
			MaxOpenConns: cfg.Store.MaxOpenConns,
			MaxIdleConns: cfg.Store.MaxIdleConns,
		})
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

func buildDriver(cfg *config.Config) (driver.Driver, error) {
	timeouts := config.LoadTimeouts()
	switch cfg.Backend.Kind {
	case config.BackendHCloud:
		return hcloud.New(cfg.HCloud, timeouts), nil
	case config.BackendKubernetes:
		return kube.New(cfg.Kube, timeouts)
	default:
		return nil, fmt.Errorf("unknown backend kind: %s", cfg.Backend.Kind)
	}
}

func gatewayImage(cfg *config.Config) string {
	if cfg.Backend.Kind == config.BackendKubernetes {
		return cfg.Kube.Image
	}
	return cfg.HCloud.Image
}

func volumeSize(cfg *config.Config) int {
	if cfg.Backend.Kind == config.BackendKubernetes {
		return cfg.Kube.VolumeSizeGB
	}
	return cfg.HCloud.VolumeSizeGB
}
