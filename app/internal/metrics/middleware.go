package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// statusWriter captures the status code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// otherPath is the path label applied to requests outside the known route
// set. Labelling by raw request path would let arbitrary clients grow the
// label space without bound.
const otherPath = "other"

// Middleware wraps next with request instrumentation. Requests are
// partitioned by the matched route from routes, not the raw URL path; the
// duration histogram is observed for every response, error responses
// included — a 500 still produces a sample.
func (m *Metrics) Middleware(next http.Handler, routes ...string) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, route := range routes {
		known[route] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		m.requestsActive.Inc()
		start := time.Now()

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		m.requestsActive.Dec()

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		path := r.URL.Path
		if !known[path] {
			path = otherPath
		}
		code := strconv.Itoa(status)
		m.requestsTotal.WithLabelValues(r.Method, path, code).Inc()
		m.requestDuration.WithLabelValues(r.Method, path, code).Observe(elapsed.Seconds())
	})
}
