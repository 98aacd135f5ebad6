package scrape

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the collector's own instruments, served on its /metrics route.
type Metrics struct {
	scrapesTotal    *prometheus.CounterVec
	failuresTotal   *prometheus.CounterVec
	samplesAppended prometheus.Counter
	scrapeDuration  prometheus.Histogram
	activeTargets   prometheus.Gauge
}

// NewMetrics creates and registers the scrape instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scrapesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_scrapes_total",
				Help: "Scrape attempts, partitioned by job and target instance.",
			},
			[]string{"job", "instance"},
		),
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_scrape_failures_total",
				Help: "Failed scrapes (timeout, refused, non-200, parse error), partitioned by job and instance.",
			},
			[]string{"job", "instance"},
		),
		samplesAppended: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulse_samples_appended_total",
				Help: "Samples committed to the local store.",
			},
		),
		scrapeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulse_scrape_duration_seconds",
				Help:    "Duration of scrape cycles across all targets.",
				Buckets: prometheus.DefBuckets,
			},
		),
		activeTargets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_active_targets",
				Help: "Number of scrape loops currently running.",
			},
		),
	}
	reg.MustRegister(
		m.scrapesTotal,
		m.failuresTotal,
		m.samplesAppended,
		m.scrapeDuration,
		m.activeTargets,
	)
	return m
}
