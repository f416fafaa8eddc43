// Package server exposes the Telegram webhook and operational endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/compozy/groupops/engine/infra/cache"
	"github.com/compozy/groupops/engine/infra/monitoring"
	"github.com/compozy/groupops/engine/surface"
	"github.com/compozy/groupops/pkg/config"
	"github.com/compozy/groupops/pkg/logger"
)

const (
	httpReadTimeout  = 15 * time.Second
	httpWriteTimeout = 15 * time.Second
	httpIdleTimeout  = 60 * time.Second

	defaultShutdownTimeout = 5 * time.Second
	webhookPath            = "/telegram/webhook"
	healthPath             = "/healthz"
	secretHeader           = "X-Telegram-Bot-Api-Secret-Token"
)

// UpdateHandler consumes decoded Telegram updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u *surface.Update) error
}

type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	handler    UpdateHandler
	deduper    cache.Deduper
	monitoring *monitoring.Service
}

// NewServer builds the router. monitoring may be nil.
func NewServer(
	ctx context.Context,
	cfg *config.Config,
	handler UpdateHandler,
	deduper cache.Deduper,
	mon *monitoring.Service,
) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		handler:    handler,
		deduper:    deduper,
		monitoring: mon,
	}
	if err := s.buildRouter(ctx); err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}
	return s, nil
}

func (s *Server) buildRouter(ctx context.Context) error {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger.FromContext(ctx)))
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		r.Use(s.monitoring.GinMiddleware(ctx))
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	r.GET(healthPath, s.health)

	webhook := r.Group(webhookPath)
	if s.cfg.RateLimit.Enabled {
		limit, err := RateLimitMiddleware(s.cfg.RateLimit.Rate)
		if err != nil {
			return err
		}
		webhook.Use(limit)
	}
	webhook.POST("", s.webhook)
	s.router = r
	return nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) address() string {
	return net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	srv := &http.Server{
		Addr:         s.address(),
		Handler:      s.router,
		ReadTimeout:  httpReadTimeout,
		WriteTimeout: max(httpWriteTimeout, s.cfg.Server.Timeout),
		IdleTimeout:  httpIdleTimeout,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Debug("Shutting down HTTP server")
		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info("Server shutdown completed successfully")
		return nil
	})
	return g.Wait()
}
