package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"time"
)

// Handler serves the demo business routes.
type Handler struct {
	mux *http.ServeMux

	// sleep is injectable so tests don't wait on real latency.
	sleep func(time.Duration)
}

// New creates a Handler with all routes registered.
func New() *Handler {
	h := &Handler{mux: http.NewServeMux(), sleep: time.Sleep}
	h.mux.HandleFunc("/", h.hello)
	h.mux.HandleFunc("/work", h.work)
	h.mux.HandleFunc("/boom", h.boom)
	return h
}

// Routes returns the registered route patterns, for metric partitioning.
func Routes() []string {
	return []string{"/", "/work", "/boom"}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// hello returns GET / — a static payload.
func (h *Handler) hello(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"service": "pulse-app", "status": "ok"})
}

// work returns GET /work after 10–110ms of simulated latency, giving the
// duration histogram something to spread over.
func (h *Handler) work(w http.ResponseWriter, _ *http.Request) {
	h.sleep(time.Duration(10+rand.Intn(100)) * time.Millisecond)
	jsonResp(w, http.StatusOK, map[string]string{"result": "done"})
}

// boom returns GET /boom — a deliberate failure so error-path metrics are
// populated too.
func (h *Handler) boom(w http.ResponseWriter, _ *http.Request) {
	jsonErr(w, http.StatusInternalServerError, "simulated failure")
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, map[string]string{"error": msg})
}
