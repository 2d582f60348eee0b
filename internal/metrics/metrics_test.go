package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.CyclesTotal.WithLabelValues("ok").Inc()
	m.ErrorsTotal.WithLabelValues("data_insufficient").Add(2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() != "supertrend_errors_total" {
			continue
		}
		found = true
		if got := f.GetMetric()[0].GetCounter().GetValue(); got != 2 {
			t.Errorf("errors: %v", got)
		}
	}
	if !found {
		t.Error("supertrend_errors_total not gathered")
	}
}

func TestHealth_Status(t *testing.T) {
	h := NewHealthStatus()
	if h.Status() != "starting" {
		t.Errorf("initial %s", h.Status())
	}
	h.RecordCycle(true, 0, "flat", time.Now())
	if h.Status() != "healthy" {
		t.Errorf("after ok cycle %s", h.Status())
	}
	h.RecordCycle(false, 2, "long", time.Now())
	if h.Status() != "degraded" {
		t.Errorf("after failed cycle %s", h.Status())
	}
	h.SetBreakerTripped(true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code %d", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "halted" || body["position"] != "long" {
		t.Errorf("body %v", body)
	}
}
