package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/bluefairy/tenantd/internal/driver"
	"github.com/bluefairy/tenantd/internal/util/retry"
)

// CreateVolume provisions the tenant's state volume in the given region.
func (c *Client) CreateVolume(ctx context.Context, spec driver.VolumeSpec) (string, error) {
	const op = "hcloud: create volume"

	if err := spec.Validate(); err != nil {
		return "", driver.Conflict(op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Create)
	defer cancel()

	location, _, err := c.client.Location.Get(ctx, spec.Region)
	if err != nil {
		return "", classify(op, err)
	}
	if location == nil {
		return "", driver.Conflict(op, fmt.Errorf("location not found: %s", spec.Region))
	}

	opts := hcloud.VolumeCreateOpts{
		Name:     spec.Name,
		Size:     spec.SizeGB,
		Location: location,
		Labels:   labels(),
		Format:   hcloud.Ptr("ext4"),
	}

	var result hcloud.VolumeCreateResult
	err = retry.Do(ctx, func() error {
		var apiErr error
		result, _, apiErr = c.client.Volume.Create(ctx, opts)
		if apiErr != nil && !isTransient(apiErr) {
			return retry.Fatal(apiErr)
		}
		return apiErr
	}, retry.WithMaxAttempts(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
	if err != nil {
		return "", classify(op, err)
	}

	if err := c.waitFor(ctx, op, result.Action); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", result.Volume.ID), nil
}

// destroyVolume deletes the volume, detaching it first if it is still
// attached. A missing volume is the desired end state, not an error.
func (c *Client) destroyVolume(ctx context.Context, volumeID string) error {
	const op = "hcloud: destroy volume"

	id, err := parseID(op, volumeID)
	if err != nil {
		return nil
	}

	volume, _, err := c.client.Volume.GetByID(ctx, id)
	if err != nil {
		return classify(op, err)
	}
	if volume == nil {
		return nil
	}

	if volume.Server != nil {
		action, _, err := c.client.Volume.Detach(ctx, volume)
		if err != nil {
			return classify(op, err)
		}
		if err := c.waitFor(ctx, op, action); err != nil {
			return err
		}
	}

	if _, err := c.client.Volume.Delete(ctx, volume); err != nil {
		if driver.IsNotFound(classify(op, err)) {
			return nil
		}
		return classify(op, err)
	}
	return nil
}
