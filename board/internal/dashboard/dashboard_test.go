package dashboard

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pulsestack/pulsestack/board/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func TestValidate(t *testing.T) {
	valid := Dashboard{Name: "overview", Panels: []Panel{
		{Title: "rps", DataSourceID: 1, Query: "http_requests_total", Range: Duration(15 * time.Minute)},
	}}

	tests := []struct {
		name    string
		mutate  func(d *Dashboard)
		wantErr bool
	}{
		{"valid", func(*Dashboard) {}, false},
		{"no panels is fine", func(d *Dashboard) { d.Panels = nil }, false},
		{"missing name", func(d *Dashboard) { d.Name = "" }, true},
		{"panel missing title", func(d *Dashboard) { d.Panels[0].Title = "" }, true},
		{"panel missing datasource", func(d *Dashboard) { d.Panels[0].DataSourceID = 0 }, true},
		{"panel missing query", func(d *Dashboard) { d.Panels[0].Query = "" }, true},
		{"negative range", func(d *Dashboard) { d.Panels[0].Range = Duration(-time.Minute) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			d.Panels = append([]Panel(nil), valid.Panels...)
			tt.mutate(&d)
			err := Validate(d)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got err %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	b, err := json.Marshal(Duration(90 * time.Second))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"1m30s"` {
		t.Errorf("marshal: got %s, want \"1m30s\"", b)
	}

	var d Duration
	if err := json.Unmarshal([]byte(`"15m"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if time.Duration(d) != 15*time.Minute {
		t.Errorf("unmarshal: got %v, want 15m", time.Duration(d))
	}

	if err := json.Unmarshal([]byte(`"forever"`), &d); err == nil {
		t.Error("unmarshal: expected error for unparseable duration")
	}
}

func TestService_SaveGetRoundTrip(t *testing.T) {
	s := NewService(newTestStore(t))

	id, err := s.Save(Dashboard{Name: "overview", Panels: []Panel{
		{Title: "rps", DataSourceID: 1, Query: "http_requests_total", Range: Duration(5 * time.Minute)},
		{Title: "latency", DataSourceID: 1, Query: "http_request_duration_seconds_sum"},
	}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	d, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(d.Panels) != 2 {
		t.Fatalf("panels: got %d, want 2", len(d.Panels))
	}
	if d.Panels[0].Range != Duration(5*time.Minute) {
		t.Errorf("panel range: got %v", time.Duration(d.Panels[0].Range))
	}
	if d.Panels[1].Range != 0 {
		t.Errorf("unset range should stay zero, got %v", time.Duration(d.Panels[1].Range))
	}
}

func TestService_SaveRejectsInvalid(t *testing.T) {
	s := NewService(newTestStore(t))
	if _, err := s.Save(Dashboard{Name: ""}); err == nil {
		t.Error("Save: expected validation error")
	}
}

func TestService_Update(t *testing.T) {
	s := NewService(newTestStore(t))
	id, err := s.Save(Dashboard{Name: "v1"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := s.Save(Dashboard{ID: id, Name: "v2"}); err != nil {
		t.Fatalf("Save (update): %v", err)
	}
	d, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Name != "v2" {
		t.Errorf("Name: got %q, want v2", d.Name)
	}
}

func TestService_Delete(t *testing.T) {
	s := NewService(newTestStore(t))
	id, err := s.Save(Dashboard{Name: "gone-soon"})
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
