// Package server exposes the orchestrator over HTTP. All lifecycle
// endpoints sit behind the admin bearer token; health and metrics are
// open for probes and scrapers.
package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/orchestrator"
)

// Server is the HTTP API.
type Server struct {
	echo *echo.Echo
	orch *orchestrator.Orchestrator
	log  *zap.Logger
}

// New assembles the routes and middleware. adminToken guards every
// tenant endpoint; an empty token refuses all of them.
func New(orch *orchestrator.Orchestrator, adminToken string, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())
	e.Use(RequestID())
	e.Use(RequestLogger(log))

	s := &Server{echo: e, orch: orch, log: log}

	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("", BearerAuth(adminToken))
	api.POST("/tenants", s.createTenant)
	api.GET("/tenants/:id", s.getTenant)
	api.GET("/slugs/:slug", s.getTenantBySlug)
	api.POST("/tenants/:id/start", s.startTenant)
	api.POST("/tenants/:id/stop", s.stopTenant)
	api.POST("/tenants/:id/destroy", s.destroyTenant)
	api.POST("/tenants/:id/reconcile", s.reconcileTenant)
	api.POST("/tenants/:id/retry", s.retryTenant)
	api.GET("/owners/:owner/status", s.ownerStatus)

	return s
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start(listen string) error {
	s.log.Info("http api listening", zap.String("addr", listen))
	err := s.echo.Start(listen)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
