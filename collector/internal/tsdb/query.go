package tsdb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pulsestack/pulsestack/pkg/types"
)

// lookbackDelta is how far back an instant query reaches for the most
// recent sample of each series.
const lookbackDelta = 5 * time.Minute

// Matcher requires a label to carry an exact value. A Matcher on
// types.MetricNameLabel selects by metric name.
type Matcher struct {
	Name  string
	Value string
}

// ParseExpr parses a selector expression of the form
//
//	metric_name
//	metric_name{label="value",other="value"}
//	{label="value"}
//
// into a list of matchers. This is deliberately the whole query language.
func ParseExpr(expr string) ([]Matcher, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("tsdb: empty query expression")
	}

	name := expr
	var body string
	if i := strings.IndexByte(expr, '{'); i >= 0 {
		if !strings.HasSuffix(expr, "}") {
			return nil, fmt.Errorf("tsdb: unclosed '{' in %q", expr)
		}
		name = strings.TrimSpace(expr[:i])
		body = expr[i+1 : len(expr)-1]
	}

	var matchers []Matcher
	if name != "" {
		if !validMetricName(name) {
			return nil, fmt.Errorf("tsdb: invalid metric name %q", name)
		}
		matchers = append(matchers, Matcher{Name: types.MetricNameLabel, Value: name})
	}

	body = strings.TrimSpace(body)
	if body == "" {
		if len(matchers) == 0 {
			return nil, fmt.Errorf("tsdb: selector %q matches nothing", expr)
		}
		return matchers, nil
	}

	// Scan matcher by matcher rather than splitting on commas — a quoted
	// value may itself contain a comma.
	rest := body
	for {
		rest = strings.TrimLeft(rest, ", \t")
		if rest == "" {
			break
		}
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			return nil, fmt.Errorf("tsdb: matcher %q: want label=\"value\"", rest)
		}
		k := strings.TrimSpace(rest[:eq])
		rest = strings.TrimLeft(rest[eq+1:], " \t")

		quoted, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return nil, fmt.Errorf("tsdb: matcher %q: value must be double-quoted", k)
		}
		v, err := strconv.Unquote(quoted)
		if err != nil {
			return nil, fmt.Errorf("tsdb: matcher %q: %w", k, err)
		}
		matchers = append(matchers, Matcher{Name: k, Value: v})

		rest = strings.TrimLeft(rest[len(quoted):], " \t")
		if rest != "" && rest[0] != ',' {
			return nil, fmt.Errorf("tsdb: unexpected %q after matcher %q", rest, k)
		}
	}
	return matchers, nil
}

// InstantQuery returns, for every series matching the expression, the most
// recent sample at or before at (within the lookback window). Series with
// no sample in the window are omitted.
func (s *Store) InstantQuery(matchers []Matcher, at time.Time) []types.Series {
	t := at.UnixMilli()
	oldest := at.Add(-lookbackDelta).UnixMilli()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Series
	s.eachMatch(matchers, func(ser *memSeries) {
		// Index of the first sample after t.
		i := sort.Search(len(ser.samples), func(i int) bool {
			return ser.samples[i].T > t
		})
		if i == 0 {
			return
		}
		latest := ser.samples[i-1]
		if latest.T < oldest {
			return
		}
		out = append(out, types.Series{
			Metric:  ser.labels.Clone(),
			Samples: []types.Sample{latest},
		})
	})
	sortSeries(out)
	return out
}

// RangeQuery returns, for every matching series, the raw samples with
// timestamps in [start, end]. Series with no samples in range are omitted.
func (s *Store) RangeQuery(matchers []Matcher, start, end time.Time) []types.Series {
	lo, hi := start.UnixMilli(), end.UnixMilli()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Series
	s.eachMatch(matchers, func(ser *memSeries) {
		i := sort.Search(len(ser.samples), func(i int) bool {
			return ser.samples[i].T >= lo
		})
		j := sort.Search(len(ser.samples), func(j int) bool {
			return ser.samples[j].T > hi
		})
		if i >= j {
			return
		}
		out = append(out, types.Series{
			Metric:  ser.labels.Clone(),
			Samples: append([]types.Sample(nil), ser.samples[i:j]...),
		})
	})
	sortSeries(out)
	return out
}

// eachMatch calls fn for every series satisfying all matchers.
// Callers must hold at least the read lock.
func (s *Store) eachMatch(matchers []Matcher, fn func(*memSeries)) {
	for _, list := range s.series {
		for _, ser := range list {
			if matches(ser.labels, matchers) {
				fn(ser)
			}
		}
	}
}

func matches(labels types.Labels, matchers []Matcher) bool {
	for _, m := range matchers {
		if labels[m.Name] != m.Value {
			return false
		}
	}
	return true
}

// sortSeries orders results by their label string for stable API output.
func sortSeries(out []types.Series) {
	sort.Slice(out, func(i, j int) bool {
		return out[i].Metric.String() < out[j].Metric.String()
	})
}

// validMetricName reports whether name is a legal exposition metric name.
func validMetricName(name string) bool {
	for i, r := range name {
		ok := r == '_' || r == ':' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(i > 0 && r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return len(name) > 0
}
