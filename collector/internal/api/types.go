package api

import "github.com/pulsestack/pulsestack/collector/internal/scrape"

// TargetsResponse is the body of GET /api/v1/targets.
type TargetsResponse struct {
	Targets []scrape.Status `json:"targets"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Service       string `json:"service"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	SeriesCount   int    `json:"series_count"`
	SampleCount   int    `json:"sample_count"`
	TargetCount   int    `json:"target_count"`
}
