package hcloud

import (
	"context"
	"fmt"

	"github.com/bluefairy/tenantd/internal/driver"
)

// BindNetwork sets reverse DNS on the server's public IP to the tenant
// hostname and returns the canonical endpoint. Forward DNS is a wildcard
// record on the base domain, so the endpoint itself is deterministic.
func (c *Client) BindNetwork(ctx context.Context, computeID, hostname string) (string, error) {
	const op = "hcloud: bind network"

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Create)
	defer cancel()

	server, err := c.getServer(ctx, op, computeID)
	if err != nil {
		return "", err
	}
	if server == nil {
		return "", driver.NotFound(op, fmt.Errorf("server %s does not exist", computeID))
	}
	if server.PublicNet.IPv4.IP == nil {
		return "", driver.Unavailable(op, fmt.Errorf("server %s has no public IPv4 yet", computeID))
	}

	action, _, err := c.client.RDNS.ChangeDNSPtr(ctx, server, server.PublicNet.IPv4.IP, &hostname)
	if err != nil {
		return "", classify(op, err)
	}
	if err := c.waitFor(ctx, op, action); err != nil {
		return "", err
	}

	return "https://" + hostname, nil
}
