package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/pulsestack/pulsestack/board/internal/query"
	"github.com/pulsestack/pulsestack/board/internal/store"
	"github.com/pulsestack/pulsestack/pkg/types"
)

// PanelResult is one rendered panel: either series data or an error state,
// never both.
type PanelResult struct {
	Title  string         `json:"title"`
	Query  string         `json:"query"`
	Series []types.Series `json:"series,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Rendered is a fully rendered dashboard.
type Rendered struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Panels     []PanelResult `json:"panels"`
	RenderedAt time.Time     `json:"rendered_at"`
}

// Renderer executes dashboard panels against their data sources.
type Renderer struct {
	dashboards  *Service
	datasources dataSourceGetter
	now         func() time.Time // injectable for deterministic tests

	// newClient is injectable for tests; defaults to the real query client.
	newClient func(baseURL string) rangeQuerier
}

// dataSourceGetter is the slice of the datasource service the renderer needs.
type dataSourceGetter interface {
	Get(id int64) (*store.DataSource, error)
}

// rangeQuerier is the slice of the query client the renderer needs.
type rangeQuerier interface {
	Range(ctx context.Context, expr string, start, end time.Time) ([]types.Series, error)
}

// NewRenderer creates a Renderer over the dashboard and datasource services.
func NewRenderer(dashboards *Service, datasources dataSourceGetter) *Renderer {
	return &Renderer{
		dashboards:  dashboards,
		datasources: datasources,
		now:         time.Now,
		newClient: func(baseURL string) rangeQuerier {
			return query.New(baseURL)
		},
	}
}

// Render executes every panel of the dashboard and returns the results.
// A panel failure — unknown data source, unreachable collector, rejected
// query — lands in that panel's Error field; it never fails the dashboard
// and never touches other panels.
func (r *Renderer) Render(ctx context.Context, id int64) (*Rendered, error) {
	d, err := r.dashboards.Get(id)
	if err != nil {
		return nil, err
	}

	now := r.now()
	out := &Rendered{
		ID:         d.ID,
		Name:       d.Name,
		Panels:     make([]PanelResult, 0, len(d.Panels)),
		RenderedAt: now.UTC(),
	}

	for _, p := range d.Panels {
		out.Panels = append(out.Panels, r.renderPanel(ctx, p, now))
	}
	return out, nil
}

func (r *Renderer) renderPanel(ctx context.Context, p Panel, now time.Time) PanelResult {
	res := PanelResult{Title: p.Title, Query: p.Query}

	ds, err := r.datasources.Get(p.DataSourceID)
	if errors.Is(err, store.ErrNotFound) {
		res.Error = "data source no longer exists"
		return res
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}

	lookback := time.Duration(p.Range)
	if lookback <= 0 {
		lookback = DefaultRange
	}

	series, err := r.newClient(ds.URL).Range(ctx, p.Query, now.Add(-lookback), now)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Series = series
	return res
}
