package hcloud

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/bluefairy/tenantd/internal/driver"
	"github.com/bluefairy/tenantd/internal/util/keygen"
)

// CreateComputeUnit provisions the gateway server with the tenant volume
// attached and the gateway environment delivered via cloud-init.
func (c *Client) CreateComputeUnit(ctx context.Context, spec driver.ComputeSpec) (string, error) {
	const op = "hcloud: create server"

	if err := spec.Validate(); err != nil {
		return "", driver.Conflict(op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Create)
	defer cancel()

	sshKeys, cleanup, err := c.resolveSSHKeys(ctx, op, spec.Name)
	if err != nil {
		return "", err
	}
	defer cleanup()

	opts, err := c.buildServerCreateOpts(ctx, op, spec, sshKeys)
	if err != nil {
		return "", err
	}

	result, _, err := c.client.Server.Create(ctx, opts)
	if err != nil {
		return "", classify(op, err)
	}

	actions := append([]*hcloud.Action{result.Action}, result.NextActions...)
	if err := c.waitFor(ctx, op, actions...); err != nil {
		// The server exists; report its id so the record can track it
		// even though the boot wait failed.
		return fmt.Sprintf("%d", result.Server.ID), err
	}
	return fmt.Sprintf("%d", result.Server.ID), nil
}

// resolveSSHKeys returns the configured provider-side keys. When none
// are configured it creates a throwaway key instead, because Hetzner
// emails a root password for servers created without any key. The
// returned cleanup deletes the throwaway key once the server exists.
func (c *Client) resolveSSHKeys(ctx context.Context, op, serverName string) ([]*hcloud.SSHKey, func(), error) {
	if len(c.cfg.SSHKeys) > 0 {
		var keys []*hcloud.SSHKey
		for _, name := range c.cfg.SSHKeys {
			key, _, err := c.client.SSHKey.Get(ctx, name)
			if err != nil {
				return nil, nil, classify(op, err)
			}
			if key == nil {
				return nil, nil, driver.Conflict(op, fmt.Errorf("ssh key not found: %s", name))
			}
			keys = append(keys, key)
		}
		return keys, func() {}, nil
	}

	pair, err := keygen.GenerateRSAKeyPair(2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral SSH key: %w", err)
	}
	name := fmt.Sprintf("ephemeral-%s-%d", serverName, time.Now().Unix())
	key, _, err := c.client.SSHKey.Create(ctx, hcloud.SSHKeyCreateOpts{
		Name:      name,
		PublicKey: string(pair.PublicKey),
		Labels:    labels(),
	})
	if err != nil {
		return nil, nil, classify(op, err)
	}
	cleanup := func() {
		// Best effort; an orphaned key carries the managed-by label
		// and is harmless.
		_, _ = c.client.SSHKey.Delete(context.Background(), key)
	}
	return []*hcloud.SSHKey{key}, cleanup, nil
}

func (c *Client) buildServerCreateOpts(ctx context.Context, op string, spec driver.ComputeSpec, sshKeys []*hcloud.SSHKey) (hcloud.ServerCreateOpts, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, spec.Shape)
	if err != nil {
		return hcloud.ServerCreateOpts{}, classify(op, err)
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, driver.Conflict(op, fmt.Errorf("server type not found: %s", spec.Shape))
	}

	image, err := c.resolveImage(ctx, spec.Image, serverType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, classify(op, err)
	}

	location, _, err := c.client.Location.Get(ctx, spec.Region)
	if err != nil {
		return hcloud.ServerCreateOpts{}, classify(op, err)
	}
	if location == nil {
		return hcloud.ServerCreateOpts{}, driver.Conflict(op, fmt.Errorf("location not found: %s", spec.Region))
	}

	volumeID, err := parseID(op, spec.VolumeID)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	return hcloud.ServerCreateOpts{
		Name:       spec.Name,
		ServerType: serverType,
		Image:      image,
		Location:   location,
		SSHKeys:    sshKeys,
		Labels:     labels(),
		UserData:   renderUserData(spec),
		Volumes:    []*hcloud.Volume{{ID: volumeID}},
		Automount:  hcloud.Ptr(true),
	}, nil
}

// resolveImage finds the image by name, preferring the variant matching
// the server type's architecture.
func (c *Client) resolveImage(ctx context.Context, name string, serverType *hcloud.ServerType) (*hcloud.Image, error) {
	images, _, err := c.client.Image.List(ctx, hcloud.ImageListOpts{
		Name:         name,
		Architecture: []hcloud.Architecture{serverType.Architecture},
	})
	if err != nil {
		return nil, err
	}
	if len(images) > 0 {
		return images[0], nil
	}
	return nil, fmt.Errorf("image not found: %s (%s)", name, serverType.Architecture)
}

// renderUserData emits a cloud-config that drops the gateway environment
// at a fixed path. The gateway image's service unit sources this file.
func renderUserData(spec driver.ComputeSpec) string {
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("#cloud-config\n")
	b.WriteString("write_files:\n")
	b.WriteString("  - path: /etc/gateway/gateway.env\n")
	b.WriteString("    permissions: \"0600\"\n")
	b.WriteString("    content: |\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "      %s=%s\n", k, spec.Env[k])
	}
	return b.String()
}

// Inspect reports the server's power state.
func (c *Client) Inspect(ctx context.Context, computeID string) (driver.ObservedStatus, error) {
	const op = "hcloud: inspect server"

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Inspect)
	defer cancel()

	server, err := c.getServer(ctx, op, computeID)
	if err != nil {
		return driver.ObservedUnknown, err
	}
	if server == nil {
		return driver.ObservedNotFound, nil
	}

	switch server.Status {
	case hcloud.ServerStatusRunning:
		return driver.ObservedRunning, nil
	case hcloud.ServerStatusOff:
		return driver.ObservedStopped, nil
	case hcloud.ServerStatusInitializing, hcloud.ServerStatusStarting:
		return driver.ObservedPending, nil
	case hcloud.ServerStatusStopping, hcloud.ServerStatusDeleting,
		hcloud.ServerStatusMigrating, hcloud.ServerStatusRebuilding:
		return driver.ObservedUnknown, nil
	default:
		return driver.ObservedUnknown, nil
	}
}

// Start powers on the server. A running server is a no-op.
func (c *Client) Start(ctx context.Context, computeID string) error {
	const op = "hcloud: start server"

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Inspect)
	defer cancel()

	server, err := c.getServer(ctx, op, computeID)
	if err != nil {
		return err
	}
	if server == nil {
		return driver.NotFound(op, fmt.Errorf("server %s does not exist", computeID))
	}
	if server.Status == hcloud.ServerStatusRunning {
		return nil
	}

	action, _, err := c.client.Server.Poweron(ctx, server)
	if err != nil {
		return classify(op, err)
	}
	return c.waitFor(ctx, op, action)
}

// Stop powers off the server. A stopped server is a no-op.
func (c *Client) Stop(ctx context.Context, computeID string) error {
	const op = "hcloud: stop server"

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Inspect)
	defer cancel()

	server, err := c.getServer(ctx, op, computeID)
	if err != nil {
		return err
	}
	if server == nil {
		return driver.NotFound(op, fmt.Errorf("server %s does not exist", computeID))
	}
	if server.Status == hcloud.ServerStatusOff {
		return nil
	}

	action, _, err := c.client.Server.Poweroff(ctx, server)
	if err != nil {
		return classify(op, err)
	}
	return c.waitFor(ctx, op, action)
}

// getServer fetches a server by backend id. Returns (nil, nil) when the
// server does not exist.
func (c *Client) getServer(ctx context.Context, op, computeID string) (*hcloud.Server, error) {
	id, err := parseID(op, computeID)
	if err != nil {
		return nil, nil
	}
	server, _, err := c.client.Server.GetByID(ctx, id)
	if err != nil {
		classified := classify(op, err)
		if driver.IsNotFound(classified) {
			return nil, nil
		}
		return nil, classified
	}
	return server, nil
}
