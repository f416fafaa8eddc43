package batch

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/groupops/engine/flow"
	monitoringmetrics "github.com/compozy/groupops/engine/infra/monitoring/metrics"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
	outcomeAborted = "aborted"
)

// Metrics instruments batch runs. A nil *Metrics records nothing.
type Metrics struct {
	runs     metric.Int64Counter
	entries  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics registers the batch instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return nil, nil
	}
	runs, err := meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem("batch", "runs_total"),
		metric.WithDescription("Total batch runs by kind and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch runs counter: %w", err)
	}
	entries, err := meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem("batch", "entries_total"),
		metric.WithDescription("Total batch entries by kind and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch entries counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("batch", "duration_seconds"),
		metric.WithDescription("Batch run duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.BatchDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch duration histogram: %w", err)
	}
	return &Metrics{runs: runs, entries: entries, duration: duration}, nil
}

func (m *Metrics) recordEntry(ctx context.Context, kind flow.Kind, outcome string) {
	if m == nil {
		return
	}
	m.entries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) recordRun(ctx context.Context, res *Result, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	switch {
	case err != nil:
		outcome = outcomeAborted
	case res.FailureCount > 0:
		outcome = outcomeFailure
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", string(res.Kind)),
		attribute.String("outcome", outcome),
	)
	m.runs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, res.FinishedAt.Sub(res.StartedAt).Seconds(), attrs)
}
