package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pulsestack/pulsestack/collector/internal/scrape"
	"github.com/pulsestack/pulsestack/collector/internal/tsdb"
	"github.com/pulsestack/pulsestack/pkg/types"
)

// Handler serves the collector's /api/v1/* endpoints and the reload hook.
type Handler struct {
	store   *tsdb.Store
	manager *scrape.Manager
	reload  func() error
	mux     *http.ServeMux
	started time.Time
	now     func() time.Time // injectable for deterministic tests
}

// New creates a Handler wired to the store and scrape manager. reload is
// invoked by POST /-/reload; pass nil to disable the endpoint.
func New(store *tsdb.Store, manager *scrape.Manager, reload func() error) *Handler {
	h := &Handler{
		store:   store,
		manager: manager,
		reload:  reload,
		mux:     http.NewServeMux(),
		started: time.Now(),
		now:     time.Now,
	}

	h.mux.HandleFunc("/api/v1/query", h.query)
	h.mux.HandleFunc("/api/v1/query_range", h.queryRange)
	h.mux.HandleFunc("/api/v1/targets", h.targets)
	h.mux.HandleFunc("/api/v1/status", h.status)
	h.mux.HandleFunc("/-/reload", h.handleReload)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// query returns GET /api/v1/query — the latest sample per matching series.
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		queryErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	matchers, err := tsdb.ParseExpr(r.URL.Query().Get("query"))
	if err != nil {
		queryErr(w, http.StatusBadRequest, err.Error())
		return
	}

	at := h.now()
	if raw := r.URL.Query().Get("time"); raw != "" {
		at, err = parseTime(raw)
		if err != nil {
			queryErr(w, http.StatusBadRequest, "time: "+err.Error())
			return
		}
	}

	result := h.store.InstantQuery(matchers, at)
	jsonResp(w, http.StatusOK, types.QueryResponse{
		Status: types.StatusSuccess,
		Data:   types.QueryData{Result: result},
	})
}

// queryRange returns GET /api/v1/query_range — raw samples in [start, end].
func (h *Handler) queryRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		queryErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	matchers, err := tsdb.ParseExpr(r.URL.Query().Get("query"))
	if err != nil {
		queryErr(w, http.StatusBadRequest, err.Error())
		return
	}

	start, err := parseTime(r.URL.Query().Get("start"))
	if err != nil {
		queryErr(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}

	end := h.now()
	if raw := r.URL.Query().Get("end"); raw != "" {
		end, err = parseTime(raw)
		if err != nil {
			queryErr(w, http.StatusBadRequest, "end: "+err.Error())
			return
		}
	}
	if end.Before(start) {
		queryErr(w, http.StatusBadRequest, "end is before start")
		return
	}

	result := h.store.RangeQuery(matchers, start, end)
	jsonResp(w, http.StatusOK, types.QueryResponse{
		Status: types.StatusSuccess,
		Data:   types.QueryData{Result: result},
	})
}

// targets returns GET /api/v1/targets — scrape status per target.
func (h *Handler) targets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		queryErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, TargetsResponse{Targets: h.manager.Targets()})
}

// status returns GET /api/v1/status — process and store counters.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		queryErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, StatusResponse{
		Service:       "pulse-collector",
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
		SeriesCount:   h.store.SeriesCount(),
		SampleCount:   h.store.SampleCount(),
		TargetCount:   len(h.manager.Targets()),
	})
}

// handleReload serves POST /-/reload — re-read and apply the config file.
func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		queryErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.reload == nil {
		queryErr(w, http.StatusNotFound, "reload is not enabled")
		return
	}
	if err := h.reload(); err != nil {
		slog.Error("api: reload failed", "err", err)
		queryErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// --- helpers ----------------------------------------------------------------

// parseTime accepts RFC3339 or Unix seconds (integer or fractional).
func parseTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	sec, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(sec * 1000)), nil
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// queryErr writes an error in the query response envelope so clients decode
// one shape for every outcome.
func queryErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, types.QueryResponse{Status: types.StatusError, Error: msg})
}
