package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, string(body)
}

func TestRouter_KeepAlive(t *testing.T) {
	r := NewRouter(nil, prometheus.NewRegistry())

	code, body := get(t, r, "/")
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if body != KeepAliveBody {
		t.Errorf("body = %q, want %q", body, KeepAliveBody)
	}
}

func TestRouter_Health(t *testing.T) {
	ready := false
	r := NewRouter(func() bool { return ready }, prometheus.NewRegistry())

	if code, _ := get(t, r, "/v1/liveness"); code != http.StatusOK {
		t.Errorf("liveness = %d, want 200", code)
	}
	if code, _ := get(t, r, "/v1/readiness"); code != http.StatusServiceUnavailable {
		t.Errorf("readiness before ready = %d, want 503", code)
	}

	ready = true
	if code, body := get(t, r, "/v1/readiness"); code != http.StatusOK || body != "ready" {
		t.Errorf("readiness = %d %q, want 200 ready", code, body)
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	r := NewRouter(nil, reg)
	code, body := get(t, r, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if !strings.Contains(body, "router_test_total 1") {
		t.Errorf("metrics body missing counter: %s", body)
	}
}
