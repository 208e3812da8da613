package hcloud

import (
	"context"

	"github.com/bluefairy/tenantd/internal/driver"
)

// Destroy deletes the server and its volume. Already-deleted resources
// are skipped; double-destroy is not an error. The reverse DNS binding
// dies with the server's IP.
func (c *Client) Destroy(ctx context.Context, ref driver.BackendRef) error {
	const op = "hcloud: destroy"

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Destroy)
	defer cancel()

	if ref.ComputeID != "" {
		if err := c.destroyServer(ctx, ref.ComputeID); err != nil {
			return err
		}
	}
	if ref.VolumeID != "" {
		if err := c.destroyVolume(ctx, ref.VolumeID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) destroyServer(ctx context.Context, computeID string) error {
	const op = "hcloud: destroy server"

	server, err := c.getServer(ctx, op, computeID)
	if err != nil {
		return err
	}
	if server == nil {
		return nil
	}

	result, _, err := c.client.Server.DeleteWithResult(ctx, server)
	if err != nil {
		classified := classify(op, err)
		if driver.IsNotFound(classified) {
			return nil
		}
		return classified
	}
	return c.waitFor(ctx, op, result.Action)
}
