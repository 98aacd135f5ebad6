package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pulsestack/pulsestack/collector/internal/tsdb"
	"github.com/pulsestack/pulsestack/pkg/types"
)

// Target states as reported by the status API.
const (
	StateUnknown = "unknown" // no scrape attempted yet
	StateUp      = "up"      // last scrape succeeded
	StateDown    = "down"    // last scrape failed
)

// Target is one scrape endpoint derived from the configuration.
type Target struct {
	JobName  string
	Scheme   string
	Address  string // host:port
	Path     string
	Interval time.Duration
	Timeout  time.Duration

	// Labels are the static labels attached to every sample from this
	// target, job and instance included.
	Labels types.Labels
}

// URL returns the full scrape URL.
func (t Target) URL() string {
	return t.Scheme + "://" + t.Address + t.Path
}

// key identifies a target within the manager: one loop per (job, address).
func (t Target) key() string {
	return t.JobName + "\x00" + t.Address
}

// equal reports whether two targets are identical, labels included.
// Targets cannot be compared with == because Labels is a map.
func (t Target) equal(o Target) bool {
	if t.JobName != o.JobName || t.Scheme != o.Scheme || t.Address != o.Address ||
		t.Path != o.Path || t.Interval != o.Interval || t.Timeout != o.Timeout {
		return false
	}
	if len(t.Labels) != len(o.Labels) {
		return false
	}
	for k, v := range t.Labels {
		if o.Labels[k] != v {
			return false
		}
	}
	return true
}

// Status is the externally visible state of one target's scrape loop.
type Status struct {
	JobName            string            `json:"job_name"`
	Endpoint           string            `json:"endpoint"`
	State              string            `json:"state"` // up | down | unknown
	Labels             map[string]string `json:"labels"`
	LastScrape         time.Time         `json:"last_scrape"`
	LastScrapeDuration time.Duration     `json:"last_scrape_duration"`
	LastError          string            `json:"last_error,omitempty"`
}

// loop drives the scrape cycle for a single target.
type loop struct {
	target  Target
	store   *tsdb.Store
	metrics *Metrics
	client  *http.Client
	cancel  context.CancelFunc
	done    chan struct{}
	now     func() time.Time

	mu     sync.Mutex
	status Status
}

func newLoop(t Target, store *tsdb.Store, m *Metrics) *loop {
	return &loop{
		target:  t,
		store:   store,
		metrics: m,
		client:  &http.Client{Timeout: t.Timeout},
		done:    make(chan struct{}),
		now:     time.Now,
		status: Status{
			JobName:  t.JobName,
			Endpoint: t.URL(),
			State:    StateUnknown,
			Labels:   t.Labels,
		},
	}
}

// run scrapes immediately, then on every tick, until ctx is cancelled.
// Each iteration is independent — a failure never ends the loop.
func (l *loop) run(ctx context.Context) {
	defer close(l.done)

	l.scrapeOnce(ctx)

	ticker := time.NewTicker(l.target.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.scrapeOnce(ctx)
		}
	}
}

// scrapeOnce performs a single Pending → Scraping → {Success, Failure}
// cycle. The exposition body is fully parsed before anything is committed;
// an abandoned or failed scrape contributes only the synthetic up=0 sample.
func (l *loop) scrapeOnce(ctx context.Context) {
	t := l.target
	l.metrics.scrapesTotal.WithLabelValues(t.JobName, t.Address).Inc()

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	start := l.now()
	mfs, err := fetch(ctx, l.client, t.URL())
	elapsed := l.now().Sub(start)
	l.metrics.scrapeDuration.Observe(elapsed.Seconds())

	if err != nil {
		l.metrics.failuresTotal.WithLabelValues(t.JobName, t.Address).Inc()
		l.commitSynthetic(start, elapsed, 0)
		l.setStatus(StateDown, start, elapsed, err.Error())
		slog.Warn("scrape failed",
			"job", t.JobName, "instance", t.Address, "err", err)
		return
	}

	batch := flatten(mfs, t.Labels, start)
	appended := l.store.Append(batch)
	l.metrics.samplesAppended.Add(float64(appended))
	l.commitSynthetic(start, elapsed, 1)
	l.setStatus(StateUp, start, elapsed, "")

	slog.Debug("scrape succeeded",
		"job", t.JobName, "instance", t.Address,
		"samples", appended, "elapsed", elapsed)
}

// commitSynthetic appends the up gauge and scrape duration for this cycle.
// These are written on failure too — up=0 is the failure record.
func (l *loop) commitSynthetic(ts time.Time, elapsed time.Duration, up float64) {
	l.store.Append([]tsdb.RawSample{
		{Labels: l.syntheticLabels("up"), T: ts, V: up},
		{Labels: l.syntheticLabels("scrape_duration_seconds"), T: ts, V: elapsed.Seconds()},
	})
}

func (l *loop) syntheticLabels(name string) types.Labels {
	labels := l.target.Labels.Clone()
	labels[types.MetricNameLabel] = name
	return labels
}

func (l *loop) setStatus(state string, at time.Time, elapsed time.Duration, errMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.State = state
	l.status.LastScrape = at
	l.status.LastScrapeDuration = elapsed
	l.status.LastError = errMsg
}

// Status returns a copy of the loop's current status.
func (l *loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// stop cancels the loop and waits for its goroutine to exit.
func (l *loop) stop() {
	l.cancel()
	<-l.done
}
