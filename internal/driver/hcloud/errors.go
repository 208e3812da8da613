package hcloud

import (
	"context"
	"errors"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/bluefairy/tenantd/internal/driver"
)

// classify maps a Hetzner Cloud API error onto the driver taxonomy.
// Anything unrecognized is treated as backend unavailability: the call
// may have partially happened and only the next Inspect can tell.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return driver.Unavailable(op, err)
	}

	var herr hcloud.Error
	if errors.As(err, &herr) {
		switch herr.Code {
		case hcloud.ErrorCodeNotFound:
			return driver.NotFound(op, err)
		case hcloud.ErrorCodeUniquenessError:
			return driver.Conflict(op, err)
		case hcloud.ErrorCodeResourceLimitExceeded:
			return driver.QuotaExceeded(op, err)
		case hcloud.ErrorCodeRateLimitExceeded,
			hcloud.ErrorCodeConflict,
			hcloud.ErrorCodeLocked,
			hcloud.ErrorCodeResourceUnavailable,
			hcloud.ErrorCodeServerError:
			return driver.Unavailable(op, err)
		}
	}
	return driver.Unavailable(op, err)
}

// isTransient reports whether the error is worth an in-call retry.
func isTransient(err error) bool {
	var herr hcloud.Error
	if errors.As(err, &herr) {
		switch herr.Code {
		case hcloud.ErrorCodeRateLimitExceeded,
			hcloud.ErrorCodeConflict,
			hcloud.ErrorCodeLocked,
			hcloud.ErrorCodeResourceUnavailable:
			return true
		}
	}
	return false
}
