package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_Health(t *testing.T) {
	handler := NewHandler()

	for _, path := range []string{"/health", "/"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, rec.Code)
		}
		if rec.Body.String() != HealthMessage {
			t.Errorf("%s: expected body %q, got %q", path, HealthMessage, rec.Body.String())
		}
	}
}

func TestHandler_Metrics(t *testing.T) {
	BreaksStarted.WithLabelValues("toilet").Inc()

	rec := httptest.NewRecorder()
	NewHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "breakbot_breaks_started_total") {
		t.Error("Expected breakbot_breaks_started_total in metrics output")
	}
}
