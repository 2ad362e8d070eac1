package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestProbes(t *testing.T) {
	s := New(0, false)
	h := s.Handler()

	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := get(t, h, path); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s before ready = %d, want 503", path, rec.Code)
		}
	}

	s.SetReady(true)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := get(t, h, path); rec.Code != http.StatusOK {
			t.Errorf("%s when ready = %d, want 200", path, rec.Code)
		}
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	s := New(0, false)
	s.SetReady(true)
	s.AddCheck("store", func(context.Context) error { return errors.New("database is locked") })
	s.AddCheck("describer", func(context.Context) error { return nil })

	rec := get(t, s.Handler(), "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "degraded" || body.Checks["store"] != "database is locked" {
		t.Errorf("body = %+v", body)
	}
	if _, ok := body.Checks["describer"]; ok {
		t.Error("passing check reported as failure")
	}

	// liveness ignores dependency checks
	if rec := get(t, s.Handler(), "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("/healthz = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	if rec := get(t, New(0, false).Handler(), "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("/metrics disabled = %d, want 404", rec.Code)
	}
	rec := get(t, New(0, true).Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}
