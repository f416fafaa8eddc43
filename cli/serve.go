package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/compozy/groupops/engine/batch"
	"github.com/compozy/groupops/engine/flow"
	"github.com/compozy/groupops/engine/infra/cache"
	"github.com/compozy/groupops/engine/infra/monitoring"
	"github.com/compozy/groupops/engine/infra/server"
	"github.com/compozy/groupops/engine/remote"
	"github.com/compozy/groupops/engine/session"
	"github.com/compozy/groupops/engine/surface"
	"github.com/compozy/groupops/engine/wizard"
	"github.com/compozy/groupops/pkg/config"
	"github.com/compozy/groupops/pkg/logger"
)

const monitoringShutdownTimeout = 5 * time.Second

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd)
		},
	}
	cmd.Flags().String("host", "", "Host to bind the HTTP server to")
	cmd.Flags().Int("port", 0, "Port for the HTTP server")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, _, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	log, err := setupLogging(cmd, cfg)
	if err != nil {
		return err
	}
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	if cfg.Runtime.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	mon := monitoring.NewMonitoringServiceWithFallback(ctx, &cfg.Monitoring)
	mon.SetAsGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), monitoringShutdownTimeout)
		defer cancel()
		if err := mon.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shut down monitoring", "error", err)
		}
	}()

	c, err := cache.SetupCache(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to setup cache: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("Failed to close cache", "error", err)
		}
	}()

	gateway, err := remote.NewGatewayClient(&cfg.Gateway)
	if err != nil {
		return err
	}
	telegram, err := surface.NewTelegram(&cfg.Telegram)
	if err != nil {
		return err
	}
	metrics, err := batch.NewMetrics(mon.Meter())
	if err != nil {
		return fmt.Errorf("failed to create batch metrics: %w", err)
	}
	executor := batch.NewExecutor(gateway, batch.PacingFromConfig(&cfg.Batch), batch.WithMetrics(metrics))
	w := wizard.New(flow.NewMemoryStore(), gateway, telegram, executor, c.JobLock,
		wizard.WithPageSize(cfg.Wizard.PageSize))
	sessions := session.NewManager(w, telegram, cfg.Telegram.AllowedOperators)

	srv, err := server.NewServer(ctx, cfg, sessions, c.Deduper, mon)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
