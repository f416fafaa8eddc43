package monitoring

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/compozy/groupops/engine/infra/monitoring/metrics"
	"github.com/compozy/groupops/pkg/logger"
	buildversion "github.com/compozy/groupops/pkg/version"
)

// BuildInfo returns version data for metrics and the version command.
func BuildInfo() (version, commit, goVersion string) {
	info := buildversion.Get()
	return info.Version, info.CommitHash, info.GoVersion
}

// InitSystemMetrics registers build info and uptime instruments on meter.
func InitSystemMetrics(ctx context.Context, meter metric.Meter) {
	log := logger.FromContext(ctx)
	buildInfo, err := meter.Float64Gauge(
		monitoringmetrics.MetricName("build_info"),
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		log.Error("Failed to create build info gauge", "error", err)
	} else {
		version, commit, goVersion := BuildInfo()
		buildInfo.Record(ctx, 1, metric.WithAttributes(
			attribute.String("version", version),
			attribute.String("commit_hash", commit),
			attribute.String("go_version", goVersion),
		))
	}
	uptime, err := meter.Float64ObservableGauge(
		monitoringmetrics.MetricName("uptime_seconds"),
		metric.WithDescription("Service uptime in seconds"),
	)
	if err != nil {
		log.Error("Failed to create uptime gauge", "error", err)
		return
	}
	start := time.Now()
	if _, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveFloat64(uptime, time.Since(start).Seconds())
		return nil
	}, uptime); err != nil {
		log.Error("Failed to register uptime callback", "error", err)
	}
}
