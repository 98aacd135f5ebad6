package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/pulsestack/pulsestack/collector/internal/tsdb"
	"github.com/pulsestack/pulsestack/pkg/types"
)

// maxBodySize caps how much of an exposition body is read. A target that
// streams forever counts as a failed scrape, not a stuck loop.
const maxBodySize = 10 << 20

// fetch performs the HTTP GET against the target's exposition route and
// returns the parsed metric families. Any non-200 status is a failure.
func fetch(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		// A malformed body fails the whole scrape — partial ingestion would
		// leave the store inconsistent with what the target actually said.
		return nil, fmt.Errorf("parse exposition body: %w", err)
	}
	return mfs, nil
}

// flatten converts parsed metric families into raw samples, all stamped
// with the scrape time ts and tagged with the target's static labels.
// Target labels win on collision with exposed labels.
func flatten(mfs map[string]*dto.MetricFamily, target types.Labels, ts time.Time) []tsdb.RawSample {
	var out []tsdb.RawSample

	add := func(name string, exposed []*dto.LabelPair, extra types.Labels, v float64) {
		labels := make(types.Labels, len(exposed)+len(extra)+len(target)+1)
		labels[types.MetricNameLabel] = name
		for _, lp := range exposed {
			labels[lp.GetName()] = lp.GetValue()
		}
		for k, val := range extra {
			labels[k] = val
		}
		for k, val := range target {
			labels[k] = val
		}
		out = append(out, tsdb.RawSample{Labels: labels, T: ts, V: v})
	}

	for name, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.Counter != nil:
				add(name, m.Label, nil, m.Counter.GetValue())

			case m.Gauge != nil:
				add(name, m.Label, nil, m.Gauge.GetValue())

			case m.Untyped != nil:
				add(name, m.Label, nil, m.Untyped.GetValue())

			case m.Histogram != nil:
				h := m.Histogram
				for _, b := range h.GetBucket() {
					le := formatFloat(b.GetUpperBound())
					add(name+"_bucket", m.Label, types.Labels{"le": le}, float64(b.GetCumulativeCount()))
				}
				add(name+"_sum", m.Label, nil, h.GetSampleSum())
				add(name+"_count", m.Label, nil, float64(h.GetSampleCount()))

			case m.Summary != nil:
				s := m.Summary
				for _, q := range s.GetQuantile() {
					qv := formatFloat(q.GetQuantile())
					add(name, m.Label, types.Labels{"quantile": qv}, q.GetValue())
				}
				add(name+"_sum", m.Label, nil, s.GetSampleSum())
				add(name+"_count", m.Label, nil, float64(s.GetSampleCount()))
			}
		}
	}
	return out
}

// formatFloat renders a bucket bound or quantile the way the exposition
// format writes it ("0.5", "10", "+Inf").
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if s == "+Inf" || s == "Inf" {
		return "+Inf"
	}
	return s
}
