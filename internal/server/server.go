// Package server exposes the radar over HTTP for operators and debugging.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	radar "github.com/krisalay/package-radar"
	"github.com/krisalay/package-radar/api"
	"github.com/krisalay/package-radar/internal/logging"
	"github.com/krisalay/package-radar/internal/registry/github"
	"github.com/krisalay/package-radar/internal/registry/npm"
)

// Dashboard is the read side the package routes are served from.
type Dashboard interface {
	Overview(ctx context.Context, names []string, opts ...radar.FetchOption) ([]npm.Summary, error)
	Timeline(ctx context.Context, name string, opts ...radar.FetchOption) ([]npm.Version, error)
	Changelog(ctx context.Context, name, version string, opts ...radar.FetchOption) (github.Release, error)
	Refresh(name string) int
}

// Handler holds the collaborators behind the routes.
type Handler struct {
	dashboard Dashboard
	cache     api.CacheService
	nav       api.Navigator
	logger    zerolog.Logger
}

// NewHandler builds a Handler. logger is the base for per-request loggers.
func NewHandler(d Dashboard, cache api.CacheService, nav api.Navigator, logger zerolog.Logger) *Handler {
	return &Handler{dashboard: d, cache: cache, nav: nav, logger: logger}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/packages", h.Overview)
		apiGroup.GET("/packages/:name/versions", h.Versions)
		apiGroup.GET("/packages/:name/versions/:version/changelog", h.Changelog)
		apiGroup.DELETE("/packages/:name/cache", h.Refresh)

		apiGroup.GET("/navigation", h.NavigationState)
		apiGroup.POST("/navigation/dashboard", h.NavigateDashboard)
		apiGroup.POST("/navigation/timeline", h.NavigateTimeline)
		apiGroup.POST("/navigation/changelog", h.NavigateChangelog)
		apiGroup.POST("/navigation/back", h.NavigateBack)

		apiGroup.GET("/cache/metrics", h.Metrics)
		apiGroup.POST("/cache/metrics/reset", h.ResetMetrics)
		apiGroup.DELETE("/cache", h.ClearAll)
		apiGroup.POST("/cache/expired", h.ClearExpired)
		apiGroup.DELETE("/cache/:namespace/:key", h.Invalidate)
		apiGroup.POST("/cache/invalidate", h.InvalidatePattern)
	}

	return r
}

// requestLogger tags every request with a trace id and logs its outcome.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Trace-Id")
		if id == "" {
			id = logging.NewTraceID()
		}

		ctx := h.logger.WithContext(c.Request.Context())
		ctx = logging.WithTraceID(ctx, id)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-Id", id)

		c.Next()

		logging.FromContext(ctx).Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// Server runs a Handler on an address until its context ends.
type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

// New builds a Server listening on addr.
func New(addr string, h *Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           h.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: h.logger,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("radar server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info().Msg("radar server shutting down")
	return s.http.Shutdown(shutdownCtx)
}
