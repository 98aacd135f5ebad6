package scrape

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/pulsestack/pulsestack/collector/internal/config"
	"github.com/pulsestack/pulsestack/collector/internal/tsdb"
	"github.com/pulsestack/pulsestack/pkg/types"
)

// Manager owns one scrape loop per configured target. ApplyConfig diffs a
// new configuration against the running loops: added targets start, removed
// targets stop (their samples stay in the store until retention evicts
// them), and targets whose settings changed are restarted.
//
// Manager is safe for concurrent use.
type Manager struct {
	ctx     context.Context
	store   *tsdb.Store
	metrics *Metrics

	mu    sync.Mutex
	loops map[string]*loop
}

// NewManager creates a Manager whose loops run as children of ctx.
func NewManager(ctx context.Context, store *tsdb.Store, m *Metrics) *Manager {
	return &Manager{
		ctx:     ctx,
		store:   store,
		metrics: m,
		loops:   make(map[string]*loop),
	}
}

// ApplyConfig reconciles the running loops with cfg. It is called once at
// startup and again on every config reload.
func (m *Manager) ApplyConfig(cfg *config.Config) {
	want := targetsFromConfig(cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	// Stop loops whose target vanished or changed.
	for key, l := range m.loops {
		t, ok := want[key]
		if ok && t.equal(l.target) {
			continue
		}
		delete(m.loops, key)
		l.stop()
		m.metrics.activeTargets.Dec()
		if !ok {
			slog.Info("target removed — history remains queryable until retention",
				"job", l.target.JobName, "instance", l.target.Address)
		}
	}

	// Start loops for new or changed targets.
	for key, t := range want {
		if _, ok := m.loops[key]; ok {
			continue
		}
		l := newLoop(t, m.store, m.metrics)
		ctx, cancel := context.WithCancel(m.ctx)
		l.cancel = cancel
		m.loops[key] = l
		m.metrics.activeTargets.Inc()
		go l.run(ctx)
		slog.Info("target registered",
			"job", t.JobName, "instance", t.Address,
			"interval", t.Interval, "timeout", t.Timeout)
	}
}

// Targets returns the status of every running loop, sorted by job then
// endpoint for stable API output.
func (m *Manager) Targets() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.loops))
	for _, l := range m.loops {
		out = append(out, l.Status())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JobName != out[j].JobName {
			return out[i].JobName < out[j].JobName
		}
		return out[i].Endpoint < out[j].Endpoint
	})
	return out
}

// Stop cancels all loops and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, l := range m.loops {
		delete(m.loops, key)
		l.stop()
		m.metrics.activeTargets.Dec()
	}
}

// targetsFromConfig expands the scrape_configs section into concrete
// targets keyed for diffing.
func targetsFromConfig(cfg *config.Config) map[string]Target {
	out := make(map[string]Target)
	for _, job := range cfg.ScrapeConfigs {
		for _, sc := range job.StaticConfigs {
			for _, addr := range sc.Targets {
				labels := types.Labels{
					"job":      job.JobName,
					"instance": addr,
				}
				for k, v := range sc.Labels {
					labels[k] = v
				}
				t := Target{
					JobName:  job.JobName,
					Scheme:   job.Scheme,
					Address:  addr,
					Path:     job.MetricsPath,
					Interval: cfg.IntervalFor(job),
					Timeout:  cfg.TimeoutFor(job),
					Labels:   labels,
				}
				out[t.key()] = t
			}
		}
	}
	return out
}
