package kube

import (
	"context"
	"errors"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/bluefairy/tenantd/internal/driver"
)

// classify maps a Kubernetes API error onto the driver taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return driver.Unavailable(op, err)
	}

	switch {
	case apierrors.IsNotFound(err):
		return driver.NotFound(op, err)
	case apierrors.IsAlreadyExists(err):
		return driver.Conflict(op, err)
	case apierrors.IsForbidden(err) && strings.Contains(err.Error(), "exceeded quota"):
		return driver.QuotaExceeded(op, err)
	case apierrors.IsConflict(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err):
		return driver.Unavailable(op, err)
	}
	return driver.Unavailable(op, err)
}
