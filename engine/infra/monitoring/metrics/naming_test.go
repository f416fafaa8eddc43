package metrics

import "testing"

func TestMetricName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "adds prefix", input: "requests_total", expected: "groupops_requests_total"},
		{name: "keeps prefixed", input: "groupops_custom_metric", expected: "groupops_custom_metric"},
		{name: "blank returns prefix", input: "", expected: "groupops_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MetricName(tt.input); got != tt.expected {
				t.Fatalf("MetricName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMetricNameWithSubsystem(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		subsystem  string
		metricName string
		expected   string
	}{
		{name: "subsystem and name", subsystem: "batch", metricName: "runs_total", expected: "groupops_batch_runs_total"},
		{name: "trims underscores", subsystem: "_webhook_", metricName: "updates_total", expected: "groupops_webhook_updates_total"},
		{name: "empty name", subsystem: "batch", metricName: "", expected: "groupops_batch"},
		{name: "empty subsystem", subsystem: "", metricName: "uptime_seconds", expected: "groupops_uptime_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MetricNameWithSubsystem(tt.subsystem, tt.metricName); got != tt.expected {
				t.Fatalf("MetricNameWithSubsystem(%q, %q) = %q, want %q", tt.subsystem, tt.metricName, got, tt.expected)
			}
		})
	}
}
