package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)
	var total float64
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			t.Fatalf("write metric: %v", err)
		}
		if pb.Counter != nil {
			total += pb.Counter.GetValue()
		}
		if pb.Gauge != nil {
			total += pb.Gauge.GetValue()
		}
	}
	return total
}

func TestRunLifecycleMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRunStart()
	m.RecordRunStart()
	if got := counterValue(t, m.RunsActive); got != 2 {
		t.Errorf("active runs = %v, want 2", got)
	}

	m.RecordRunEnd("success", 1.5)
	if got := counterValue(t, m.RunsActive); got != 1 {
		t.Errorf("active runs = %v, want 1", got)
	}
	if got := counterValue(t, m.RunsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success runs = %v, want 1", got)
	}
}

func TestRecordAppend(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAppend("Registros", true)
	m.RecordAppend("Registros", false)
	m.RecordAppend("Registros", false)

	if got := counterValue(t, m.AppendsTotal.WithLabelValues("Registros", "ok")); got != 1 {
		t.Errorf("ok appends = %v, want 1", got)
	}
	if got := counterValue(t, m.AppendsTotal.WithLabelValues("Registros", "failed")); got != 2 {
		t.Errorf("failed appends = %v, want 2", got)
	}
}

func TestRecordKafkaPublish(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordKafkaPublish("ledger.transactions", "ledger.transaction.recorded", nil, 0.01)
	m.RecordKafkaPublish("ledger.transactions", "ledger.transaction.recorded", errors.New("boom"), 0.01)

	if got := counterValue(t, m.KafkaPublishTotal); got != 2 {
		t.Errorf("publish total = %v, want 2", got)
	}
	if got := counterValue(t, m.KafkaPublishErrors); got != 1 {
		t.Errorf("publish errors = %v, want 1", got)
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Registering twice against distinct registries must not panic.
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}
