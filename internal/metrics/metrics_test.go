package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveAuth(t *testing.T) {
	m := New()

	m.ObserveAuth(OutcomeOK)
	m.ObserveAuth(OutcomeInvalid)
	m.ObserveAuth(OutcomeInvalid)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	found := false
	for _, fam := range families {
		if fam.GetName() != "st0x_auth_attempts_total" {
			continue
		}
		found = true
		for _, metric := range fam.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetValue() == OutcomeInvalid && metric.GetCounter().GetValue() != 2 {
					t.Errorf("invalid outcome count = %v, want 2", metric.GetCounter().GetValue())
				}
			}
		}
	}
	if !found {
		t.Error("st0x_auth_attempts_total not registered")
	}
}

func TestScrapeEndpoint(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", 200, 12*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("scrape returned %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "st0x_http_requests_total") {
		t.Error("scrape output missing st0x_http_requests_total")
	}
	if !strings.Contains(body, "st0x_http_request_duration_seconds") {
		t.Error("scrape output missing duration histogram")
	}
}
