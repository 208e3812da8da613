package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bluefairy/tenantd/internal/logging"
)

// HeaderRequestID is propagated from the client when present, generated
// otherwise, and always echoed back.
const HeaderRequestID = "X-Request-Id"

// RequestID tags every request with a unique id for log correlation.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, id)
			c.Set(HeaderRequestID, id)
			return next(c)
		}
	}
}

// RequestLogger logs one line per request and stashes a request-scoped
// logger in the request context so downstream code logs with the
// request id attached.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			id, _ := c.Get(HeaderRequestID).(string)
			reqLog := log.With(zap.String("request_id", id))
			ctx := logging.WithContext(c.Request().Context(), reqLog)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			reqLog.Info("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("took", time.Since(start)))
			return err
		}
	}
}

// BearerAuth rejects requests that do not carry the admin token. An
// empty configured token locks the API entirely rather than opening it.
func BearerAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			const prefix = "Bearer "
			if token == "" || len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}
