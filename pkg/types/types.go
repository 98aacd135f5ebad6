package types

import (
	"sort"
	"strconv"
	"strings"
)

// MetricNameLabel is the reserved label under which a series' metric name
// is stored, mirroring the Prometheus convention.
const MetricNameLabel = "__name__"

// Labels is a set of label name/value pairs identifying one series.
// The metric name itself lives under MetricNameLabel.
type Labels map[string]string

// Name returns the metric name, or "" if the set has none.
func (l Labels) Name() string {
	return l[MetricNameLabel]
}

// Clone returns an independent copy of the label set.
func (l Labels) Clone() Labels {
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// String renders the label set in the familiar exposition form:
// name{label="value",...}. Labels are sorted for stable output.
func (l Labels) String() string {
	keys := make([]string, 0, len(l))
	for k := range l {
		if k == MetricNameLabel {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(l.Name())
	if len(keys) > 0 {
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strconv.Quote(l[k]))
		}
		b.WriteByte('}')
	}
	return b.String()
}

// Sample is one value at one point in time. T is Unix milliseconds.
type Sample struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

// Series is an ordered run of samples sharing one label set.
// Samples are sorted by ascending timestamp.
type Series struct {
	Metric  Labels   `json:"metric"`
	Samples []Sample `json:"samples"`
}

// QueryResponse is the envelope returned by the collector's query endpoints.
type QueryResponse struct {
	Status string    `json:"status"` // "success" | "error"
	Error  string    `json:"error,omitempty"`
	Data   QueryData `json:"data"`
}

// QueryData carries the matched series of a successful query.
type QueryData struct {
	Result []Series `json:"result"`
}

// StatusSuccess and StatusError are the two values of QueryResponse.Status.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
