// Package query is the board's HTTP client for the collector's query API.
// It is the only path the board uses to read time-series data — there is no
// direct link between the board and the instrumented applications.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pulsestack/pulsestack/pkg/types"
)

const defaultTimeout = 10 * time.Second

// Client queries one collector base URL.
type Client struct {
	base   string
	client *http.Client
}

// New creates a Client for the collector at base (e.g. "http://collector:9090").
// A trailing slash on base is dropped so joined request paths stay clean.
func New(base string) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// Instant runs an instant query at time at.
func (c *Client) Instant(ctx context.Context, expr string, at time.Time) ([]types.Series, error) {
	params := url.Values{}
	params.Set("query", expr)
	params.Set("time", formatTime(at))
	return c.get(ctx, "/api/v1/query", params)
}

// Range runs a range query over [start, end].
func (c *Client) Range(ctx context.Context, expr string, start, end time.Time) ([]types.Series, error) {
	params := url.Values{}
	params.Set("query", expr)
	params.Set("start", formatTime(start))
	params.Set("end", formatTime(end))
	return c.get(ctx, "/api/v1/query_range", params)
}

// Ping checks connectivity to the collector's status endpoint. It is the
// save-time test for data source registration: the URL must be reachable
// from this process's network namespace, which is not the operator's
// browser namespace.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/status", nil)
	if err != nil {
		return fmt.Errorf("query: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query: status endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// get issues the request and decodes the shared response envelope.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]types.Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("query: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query: http get: %w", err)
	}
	defer resp.Body.Close()

	var envelope types.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("query: decode response: %w", err)
	}
	if envelope.Status != types.StatusSuccess {
		if envelope.Error != "" {
			return nil, fmt.Errorf("query: collector rejected query: %s", envelope.Error)
		}
		return nil, fmt.Errorf("query: collector returned status %d", resp.StatusCode)
	}
	return envelope.Data.Result, nil
}

// formatTime renders a timestamp as fractional Unix seconds.
func formatTime(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMilli())/1000, 'f', 3, 64)
}
