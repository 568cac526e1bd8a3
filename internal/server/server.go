// Package server はechoの組み立てと起動・停止。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"reweave/internal/config"
	"reweave/internal/handler"
	"reweave/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// 各handlerの RegisterRoutes(api, guards)
type RouteRegistrar interface {
	RegisterRoutes(api *echo.Group, g middleware.Guards)
}

// New は共通ミドルウェアと /healthz を持つechoを返す。
// ルートは全部 /api の下。
func New(cfg config.Config, log *zap.Logger, guards middleware.Guards, handlers ...RouteRegistrar) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.FEURL},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderAuthorization,
			echo.HeaderContentType,
			middleware.HeaderSessionID,
			handler.HeaderIdempotencyKey,
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	for _, h := range handlers {
		h.RegisterRoutes(api, guards)
	}
	return e
}

// Run はctxが終わるまで待ち、そのあと shutdownTimeout 以内に止める。
func Run(ctx context.Context, e *echo.Echo, addr string, shutdownTimeout time.Duration, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	graceful, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	if err := e.Shutdown(graceful); err != nil {
		return err
	}
	return <-errCh
}
