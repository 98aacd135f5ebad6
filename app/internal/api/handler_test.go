package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func doGet(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return rec, body
}

func TestHello(t *testing.T) {
	rec, body := doGet(t, New(), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /: got status %d, want 200", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("GET /: got status field %q, want ok", body["status"])
	}
}

func TestHello_UnknownPathIs404(t *testing.T) {
	rec, _ := doGet(t, New(), "/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope: got status %d, want 404", rec.Code)
	}
}

func TestWork(t *testing.T) {
	h := New()
	var slept time.Duration
	h.sleep = func(d time.Duration) { slept = d }

	rec, body := doGet(t, h, "/work")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /work: got status %d, want 200", rec.Code)
	}
	if body["result"] != "done" {
		t.Errorf("GET /work: got result %q, want done", body["result"])
	}
	if slept < 10*time.Millisecond || slept > 110*time.Millisecond {
		t.Errorf("simulated latency %v outside [10ms, 110ms]", slept)
	}
}

func TestBoom(t *testing.T) {
	rec, body := doGet(t, New(), "/boom")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("GET /boom: got status %d, want 500", rec.Code)
	}
	if body["error"] == "" {
		t.Error("GET /boom: expected error field in body")
	}
}
