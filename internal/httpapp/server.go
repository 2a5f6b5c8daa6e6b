// Package httpapp exposes the service's operational HTTP surface: health
// probes and an on-demand sync trigger.
package httpapp

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v5"

	syncpkg "github.com/syncbridge/syncbridge/internal/sync"
)

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	e      *echo.Echo
	runner syncpkg.Runner
	logger *slog.Logger
	ready  atomic.Bool
}

func NewEchoServer(runner syncpkg.Runner, logger *slog.Logger) *EchoServer {
	if logger == nil {
		logger = slog.Default()
	}
	es := &EchoServer{e: echo.New(), runner: runner, logger: logger}
	es.registerRoutes()
	return es
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.handleHealthz)
	es.e.GET("/readyz", es.handleReadyz)
	es.e.POST("/sync", es.handleSync)
}

// MarkReady flips the readiness probe to passing. Called once the sync loop
// is running.
func (es *EchoServer) MarkReady() {
	es.ready.Store(true)
}

// Handler exposes the underlying mux for an http.Server.
func (es *EchoServer) Handler() http.Handler {
	return es.e
}

func (es *EchoServer) handleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (es *EchoServer) handleReadyz(c *echo.Context) error {
	if !es.ready.Load() {
		return c.String(http.StatusServiceUnavailable, "starting")
	}
	return c.String(http.StatusOK, "ok")
}

func (es *EchoServer) handleSync(c *echo.Context) error {
	if es.runner == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "sync is not configured"})
	}
	if err := es.runner.RunOnce(c.Request().Context()); err != nil {
		es.logger.Error("on-demand sync failed", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
