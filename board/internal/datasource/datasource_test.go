package datasource

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pulsestack/pulsestack/board/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return New(st)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		ds      store.DataSource
		wantErr bool
	}{
		{"valid", store.DataSource{Name: "collector", Type: TypePulse, URL: "http://collector:9090"}, false},
		{"valid https", store.DataSource{Name: "c", Type: TypePulse, URL: "https://collector:9090"}, false},
		{"missing name", store.DataSource{Type: TypePulse, URL: "http://collector:9090"}, true},
		{"unknown type", store.DataSource{Name: "c", Type: "graphite", URL: "http://collector:9090"}, true},
		{"bad scheme", store.DataSource{Name: "c", Type: TypePulse, URL: "ftp://collector:9090"}, true},
		{"no host", store.DataSource{Name: "c", Type: TypePulse, URL: "http://"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.ds)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%+v): got err %v, wantErr %v", tt.ds, err, tt.wantErr)
			}
		})
	}
}

func TestTest_UnreachableExplainsNamespace(t *testing.T) {
	s := newTestService(t)
	s.ping = func(context.Context, string) error {
		return fmt.Errorf("dial tcp: lookup collector: no such host")
	}

	err := s.Test(context.Background(), store.DataSource{
		Name: "collector", Type: TypePulse, URL: "http://collector:9090",
	})
	if err == nil {
		t.Fatal("Test: expected error")
	}
	// The failure message must point the operator at the network-namespace
	// trap: the URL resolves from the board process, not the browser.
	if !strings.Contains(err.Error(), "not from your browser") {
		t.Errorf("error should explain where the URL must resolve from, got: %v", err)
	}
	if !strings.Contains(err.Error(), "no such host") {
		t.Errorf("error should wrap the underlying cause, got: %v", err)
	}
}

func TestSave_RejectedWhenTestFails(t *testing.T) {
	s := newTestService(t)
	s.ping = func(context.Context, string) error { return errors.New("connection refused") }

	_, err := s.Save(context.Background(), store.DataSource{
		Name: "collector", Type: TypePulse, URL: "http://collector:9090",
	})
	if err == nil {
		t.Fatal("Save: a failing connectivity test must block the save")
	}
	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("nothing should be persisted after a failed test, got %d records", len(list))
	}
}

func TestSave_CreateAndUpdate(t *testing.T) {
	s := newTestService(t)
	var pinged []string
	s.ping = func(_ context.Context, base string) error {
		pinged = append(pinged, base)
		return nil
	}

	id, err := s.Save(context.Background(), store.DataSource{
		Name: "collector", Type: TypePulse, URL: "http://collector:9090/",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == 0 {
		t.Fatal("Save: expected an assigned ID")
	}
	if len(pinged) != 1 || pinged[0] != "http://collector:9090" {
		t.Errorf("ping base: got %v, want trailing slash trimmed", pinged)
	}

	if _, err := s.Save(context.Background(), store.DataSource{
		ID: id, Name: "collector", Type: TypePulse, URL: "http://collector:9191",
	}); err != nil {
		t.Fatalf("Save (update): %v", err)
	}

	got, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.URL != "http://collector:9191" {
		t.Errorf("URL after update: got %q", got.URL)
	}
}

func TestDelete(t *testing.T) {
	s := newTestService(t)
	s.ping = func(context.Context, string) error { return nil }

	id, err := s.Save(context.Background(), store.DataSource{
		Name: "collector", Type: TypePulse, URL: "http://collector:9090",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete: got %v, want ErrNotFound", err)
	}
}
