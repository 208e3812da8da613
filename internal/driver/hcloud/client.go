// Package hcloud implements the infrastructure driver on the Hetzner
// Cloud API: a dedicated server per gateway, a volume mounted at the
// gateway state directory, and reverse DNS for the tenant endpoint.
package hcloud

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/bluefairy/tenantd/internal/config"
	"github.com/bluefairy/tenantd/internal/driver"
)

// managedByLabel marks every resource this driver creates, so orphans
// from abandoned provisioning attempts are identifiable and cleanable.
const managedByLabel = "tenantd"

// Client implements driver.Driver against the Hetzner Cloud API.
type Client struct {
	client   *hcloud.Client
	cfg      config.HCloudConfig
	timeouts *config.Timeouts
}

// New creates a Client with the given API token configuration.
func New(cfg config.HCloudConfig, timeouts *config.Timeouts) *Client {
	return &Client{
		client:   hcloud.NewClient(hcloud.WithToken(cfg.Token)),
		cfg:      cfg,
		timeouts: timeouts,
	}
}

var _ driver.Driver = (*Client)(nil)

func labels() map[string]string {
	return map[string]string{"managed-by": managedByLabel}
}

func parseID(op, id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, driver.NotFound(op, fmt.Errorf("invalid backend id %q", id))
	}
	return n, nil
}

// waitFor blocks until the given actions complete or the context expires.
func (c *Client) waitFor(ctx context.Context, op string, actions ...*hcloud.Action) error {
	var pending []*hcloud.Action
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if err := c.client.Action.WaitFor(ctx, pending...); err != nil {
		return classify(op, err)
	}
	return nil
}
