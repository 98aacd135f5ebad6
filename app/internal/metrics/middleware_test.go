package metrics

import (
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

// exposition serves the registry through the exposition handler and returns
// the text body.
func exposition(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := get(t, m.Handler(), "/metrics/")
	if rec.Code != http.StatusOK {
		t.Fatalf("exposition: got status %d, want 200", rec.Code)
	}
	return rec.Body.String()
}

func TestMiddleware_CountsRequests(t *testing.T) {
	m := New("test-app")
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "/hello")

	get(t, h, "/hello")
	get(t, h, "/hello")

	body := exposition(t, m)
	want := `http_requests_total{method="GET",path="/hello",service="test-app",status="200"} 2`
	if !strings.Contains(body, want) {
		t.Errorf("exposition missing %q", want)
	}
}

func TestMiddleware_CountsErrorResponses(t *testing.T) {
	m := New("test-app")
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}), "/boom")

	get(t, h, "/boom")

	body := exposition(t, m)
	if !strings.Contains(body, `http_requests_total{method="GET",path="/boom",service="test-app",status="500"} 1`) {
		t.Error("exposition missing the 500 request count")
	}
	// Error responses observe the duration histogram too.
	if !strings.Contains(body, `http_request_duration_seconds_count{method="GET",path="/boom",service="test-app",status="500"} 1`) {
		t.Error("exposition missing the 500 duration observation")
	}
}

func TestMiddleware_ImplicitOKStatus(t *testing.T) {
	m := New("test-app")
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok")) //nolint:errcheck
	}), "/implicit")

	get(t, h, "/implicit")

	if !strings.Contains(exposition(t, m), `status="200"`) {
		t.Error("handler that never calls WriteHeader should count as 200")
	}
}

func TestMiddleware_UnknownPathsShareOneLabel(t *testing.T) {
	m := New("test-app")
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), "/")

	// Arbitrary request paths must not each mint a new series.
	get(t, h, "/scan-1")
	get(t, h, "/scan-2")
	get(t, h, "/scan-3")

	body := exposition(t, m)
	want := `http_requests_total{method="GET",path="other",service="test-app",status="404"} 3`
	if !strings.Contains(body, want) {
		t.Errorf("exposition missing collapsed count %q", want)
	}
	if strings.Contains(body, `path="/scan-1"`) {
		t.Error("raw unmatched path leaked into the label space")
	}
}

func TestNew_ServiceLabelOnRuntimeCollectors(t *testing.T) {
	body := exposition(t, New("labeled"))
	if !strings.Contains(body, `go_goroutines{service="labeled"}`) {
		t.Error("go collector metrics should carry the service label")
	}
	if !strings.Contains(body, "process_") {
		t.Error("process collector metrics missing from exposition")
	}
}
