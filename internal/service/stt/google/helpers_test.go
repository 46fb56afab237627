package google

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"voice-ledger-service/internal/observability/metrics"
)

func testCounter(t *testing.T, m *metrics.Metrics, labels ...string) float64 {
	t.Helper()
	var pb dto.Metric
	if err := m.STTErrors.WithLabelValues(labels...).Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return pb.GetCounter().GetValue()
}
