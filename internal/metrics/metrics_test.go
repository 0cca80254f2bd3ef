package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}
	return rr.Body.String()
}

func TestCollectorRecordsHTTPMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	handlerInvoked := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerInvoked = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	instrumented := collector.InstrumentHandler(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	instrumented.ServeHTTP(rr, req)

	if !handlerInvoked {
		t.Fatal("expected handler to be invoked")
	}

	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	body := scrape(t, collector)
	if !strings.Contains(body, `calscan_http_requests_total{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("requests_total metric not recorded, body=%q", body)
	}

	if !strings.Contains(body, `calscan_http_request_duration_seconds_count{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("request_duration_seconds_count metric not recorded, body=%q", body)
	}
}

func TestCollectorRecordsDomainMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	collector.ObserveScan("success", 3, 120*time.Millisecond)
	collector.ObserveScan("error", 0, 10*time.Millisecond)
	collector.ObserveVendorRequest("/strikes", 200, 50*time.Millisecond)
	collector.ObserveVendorRequest("/cores", 0, time.Millisecond)
	collector.ObserveNarrative("openai", "success")

	body := scrape(t, collector)
	for _, want := range []string{
		`calscan_scan_runs_total{outcome="success"} 1`,
		`calscan_scan_runs_total{outcome="error"} 1`,
		`calscan_scan_candidates_count 1`,
		`calscan_vendor_request_duration_seconds_count{endpoint="/strikes",status="200"} 1`,
		`calscan_vendor_request_duration_seconds_count{endpoint="/cores",status="error"} 1`,
		`calscan_narrative_requests_total{provider="openai",status="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in metrics output", want)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/api/scans":             "/api/scans",
		"/api/scans/":            "/api/scans/",
		"/api/scans/abc":         "/api/scans/{id}",
		"/api/scans/abc/rescore": "/api/scans/{id}/rescore",
		"/healthz":               "/healthz",
	}
	for in, want := range tests {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
