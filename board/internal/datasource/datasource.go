// Package datasource manages registered query backends: named base URLs
// the board queries for series data. Saving a data source runs a
// connectivity test from the board process itself, because the most common
// misconfiguration is a URL that only resolves from the operator's browser.
package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pulsestack/pulsestack/board/internal/query"
	"github.com/pulsestack/pulsestack/board/internal/store"
)

// TypePulse is the only backend type currently supported.
const TypePulse = "pulse"

const testTimeout = 5 * time.Second

// Service validates, tests, and persists data sources.
type Service struct {
	store *store.Store

	// ping is injectable for tests; defaults to a real query client ping.
	ping func(ctx context.Context, baseURL string) error
}

// New creates a Service backed by st.
func New(st *store.Store) *Service {
	return &Service{
		store: st,
		ping: func(ctx context.Context, baseURL string) error {
			return query.New(baseURL).Ping(ctx)
		},
	}
}

// Validate checks the data source record itself, before any network test.
func Validate(ds store.DataSource) error {
	if ds.Name == "" {
		return fmt.Errorf("datasource: name is required")
	}
	if ds.Type != TypePulse {
		return fmt.Errorf("datasource: type %q unknown: want %q", ds.Type, TypePulse)
	}
	u, err := url.Parse(ds.URL)
	if err != nil {
		return fmt.Errorf("datasource: url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("datasource: url scheme %q: want http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("datasource: url has no host")
	}
	return nil
}

// Test checks that the data source URL answers from the board's own network
// namespace. The error text spells out the namespace trap because operators
// hit it constantly.
func (s *Service) Test(ctx context.Context, ds store.DataSource) error {
	if err := Validate(ds); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	if err := s.ping(ctx, strings.TrimRight(ds.URL, "/")); err != nil {
		return fmt.Errorf(
			"datasource %q unreachable: %w — the URL must resolve from the pulse-board process, "+
				"not from your browser; inside the shared network use the collector's service name "+
				"(e.g. http://collector:9090)",
			ds.Name, err)
	}
	return nil
}

// Save validates, tests, and persists the data source. A new record (ID 0)
// is created; an existing one is updated. The failed-test error is returned
// to the caller at save time rather than discovered later as empty panels.
func (s *Service) Save(ctx context.Context, ds store.DataSource) (int64, error) {
	if err := s.Test(ctx, ds); err != nil {
		return 0, err
	}
	if ds.ID == 0 {
		return s.store.CreateDataSource(ds)
	}
	return ds.ID, s.store.UpdateDataSource(ds)
}

// Get returns one data source by ID.
func (s *Service) Get(id int64) (*store.DataSource, error) {
	return s.store.GetDataSource(id)
}

// List returns all data sources.
func (s *Service) List() ([]store.DataSource, error) {
	return s.store.ListDataSources()
}

// Delete removes a data source. Dashboards bound to it will render their
// panels in an error state until re-bound.
func (s *Service) Delete(id int64) error {
	return s.store.DeleteDataSource(id)
}
