// Package dashboard manages dashboard definitions and renders them. A
// dashboard is an ordered sequence of panels; each panel binds one data
// source to one query expression over a lookback range. Rendering produces
// series JSON per panel — charting is the UI's job. Panels fail
// independently: a panel whose data source is gone or unreachable carries
// an error string while the rest of the dashboard renders normally.
package dashboard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulsestack/pulsestack/board/internal/store"
)

// DefaultRange is the panel lookback applied when a panel doesn't set one.
const DefaultRange = 15 * time.Minute

// Panel is one chart definition.
type Panel struct {
	// Title is the panel heading shown in the UI.
	Title string `json:"title"`

	// DataSourceID references a registered data source. Referential
	// validity is checked at render time, not save time — a data source
	// deleted later degrades the panel, not the dashboard.
	DataSourceID int64 `json:"datasource_id"`

	// Query is the selector expression sent to the data source.
	Query string `json:"query"`

	// Range is the lookback window rendered, e.g. "15m".
	Range Duration `json:"range"`
}

// Duration wraps time.Duration with the "15m" JSON form.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("dashboard: range %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Dashboard is the decoded form of a stored dashboard.
type Dashboard struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Panels []Panel `json:"panels"`
}

// Validate checks a dashboard definition before saving.
func Validate(d Dashboard) error {
	if d.Name == "" {
		return fmt.Errorf("dashboard: name is required")
	}
	for i, p := range d.Panels {
		if p.Title == "" {
			return fmt.Errorf("dashboard: panels[%d]: title is required", i)
		}
		if p.DataSourceID == 0 {
			return fmt.Errorf("dashboard: panels[%d] %q: datasource_id is required", i, p.Title)
		}
		if p.Query == "" {
			return fmt.Errorf("dashboard: panels[%d] %q: query is required", i, p.Title)
		}
		if p.Range < 0 {
			return fmt.Errorf("dashboard: panels[%d] %q: range must not be negative", i, p.Title)
		}
	}
	return nil
}

// decode parses a stored dashboard row into its typed form.
func decode(row *store.Dashboard) (*Dashboard, error) {
	d := &Dashboard{ID: row.ID, Name: row.Name}
	if err := json.Unmarshal([]byte(row.Panels), &d.Panels); err != nil {
		return nil, fmt.Errorf("dashboard: decode panels of %q: %w", row.Name, err)
	}
	return d, nil
}

// encode renders a dashboard into its stored row form.
func encode(d Dashboard) (store.Dashboard, error) {
	panels := d.Panels
	if panels == nil {
		panels = []Panel{}
	}
	raw, err := json.Marshal(panels)
	if err != nil {
		return store.Dashboard{}, fmt.Errorf("dashboard: encode panels of %q: %w", d.Name, err)
	}
	return store.Dashboard{ID: d.ID, Name: d.Name, Panels: string(raw)}, nil
}

// Service persists dashboard definitions.
type Service struct {
	store *store.Store
}

// NewService creates a Service backed by st.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Save validates and persists d. A new dashboard (ID 0) is created.
func (s *Service) Save(d Dashboard) (int64, error) {
	if err := Validate(d); err != nil {
		return 0, err
	}
	row, err := encode(d)
	if err != nil {
		return 0, err
	}
	if d.ID == 0 {
		return s.store.CreateDashboard(row)
	}
	return d.ID, s.store.UpdateDashboard(row)
}

// Get returns one dashboard by ID.
func (s *Service) Get(id int64) (*Dashboard, error) {
	row, err := s.store.GetDashboard(id)
	if err != nil {
		return nil, err
	}
	return decode(row)
}

// List returns all dashboards.
func (s *Service) List() ([]*Dashboard, error) {
	rows, err := s.store.ListDashboards()
	if err != nil {
		return nil, err
	}
	out := make([]*Dashboard, 0, len(rows))
	for i := range rows {
		d, err := decode(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Delete removes a dashboard.
func (s *Service) Delete(id int64) error {
	return s.store.DeleteDashboard(id)
}
