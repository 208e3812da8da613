package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/driver"
	"github.com/bluefairy/tenantd/internal/logging"
	"github.com/bluefairy/tenantd/internal/store"
)

type createTenantRequest struct {
	OwnerRef string `json:"owner_ref"`
	Slug     string `json:"slug"`
	Region   string `json:"region"`
}

func (s *Server) createTenant(c echo.Context) error {
	var req createTenantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.OwnerRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner_ref is required"})
	}

	record, err := s.orch.Provision(c.Request().Context(), req.OwnerRef, req.Slug, req.Region)
	if err != nil {
		return s.mapError(c, err)
	}
	// Provisioning continues in the background; the caller polls status.
	return c.JSON(http.StatusAccepted, record)
}

func (s *Server) getTenant(c echo.Context) error {
	record, err := s.orch.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// getTenantBySlug resolves which tenant owns an endpoint hostname.
func (s *Server) getTenantBySlug(c echo.Context) error {
	record, err := s.orch.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

func (s *Server) ownerStatus(c echo.Context) error {
	info, err := s.orch.GetStatus(c.Request().Context(), c.Param("owner"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) startTenant(c echo.Context) error {
	return s.lifecycle(c, s.orch.Start)
}

func (s *Server) stopTenant(c echo.Context) error {
	return s.lifecycle(c, s.orch.Stop)
}

func (s *Server) destroyTenant(c echo.Context) error {
	return s.lifecycle(c, s.orch.Destroy)
}

func (s *Server) reconcileTenant(c echo.Context) error {
	return s.lifecycle(c, s.orch.Reconcile)
}

func (s *Server) retryTenant(c echo.Context) error {
	if err := s.orch.Retry(c.Request().Context(), c.Param("id")); err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "provisioning"})
}

func (s *Server) lifecycle(c echo.Context, op func(ctx context.Context, id string) error) error {
	if err := op(c.Request().Context(), c.Param("id")); err != nil {
		return s.mapError(c, err)
	}
	record, err := s.orch.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": record.Status})
}

// mapError translates domain failures onto HTTP statuses. Backend and
// unexpected failures are logged with the request-scoped logger; caller
// errors are not worth a log line.
func (s *Server) mapError(c echo.Context, err error) error {
	log := logging.FromContext(c.Request().Context())
	switch {
	case store.IsNotFound(err):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, store.ErrDuplicateOwner), errors.Is(err, store.ErrDuplicateSlug):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case store.IsInvalidTransition(err):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case driver.IsUnavailable(err):
		log.Warn("backend unavailable", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
	case driver.IsQuotaExceeded(err):
		log.Warn("backend quota exceeded", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	default:
		log.Error("request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
}
