// Package api implements the collector's HTTP query API.
//
// New(...) returns an http.Handler that serves:
//
//	GET  /api/v1/query        — instant query: ?query=<selector>&time=<ts>
//	GET  /api/v1/query_range  — range query: ?query=<selector>&start=<ts>&end=<ts>
//	GET  /api/v1/targets      — per-target scrape status ([]scrape.Status)
//	GET  /api/v1/status       — build name, uptime, series/sample counts
//	POST /-/reload            — re-read the config file and apply it
//
// Timestamps accept RFC3339 or Unix seconds. Query responses use the
// pkg/types envelope; selector syntax is the tsdb matcher language. All
// endpoints respond with Content-Type: application/json and return 405 for
// wrong methods. No external HTTP framework is used.
package api
