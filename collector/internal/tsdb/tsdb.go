package tsdb

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pulsestack/pulsestack/pkg/types"
)

// RawSample is one labelled value ready to be appended.
type RawSample struct {
	Labels types.Labels
	T      time.Time
	V      float64
}

// memSeries holds one series' samples in ascending timestamp order.
type memSeries struct {
	labels  types.Labels
	samples []types.Sample
}

// Store is a thread-safe append-only sample store with retention-based
// eviction. Appends from concurrent scrape loops need no coordination
// beyond the store's own lock — series are independent.
type Store struct {
	mu        sync.RWMutex
	series    map[uint64][]*memSeries // fingerprint → series (collision list)
	samples   int
	retention time.Duration
	now       func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given retention window.
func New(retention time.Duration) *Store {
	return &Store{
		series:    make(map[uint64][]*memSeries),
		retention: retention,
		now:       time.Now,
	}
}

// Append commits a batch of samples under one lock acquisition. Samples at
// or before a series' newest timestamp are dropped (scrape timestamps are
// monotonic per target, so this only triggers on clock anomalies). It
// returns the number of samples actually appended.
func (s *Store) Append(batch []RawSample) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	appended := 0
	for _, raw := range batch {
		ser := s.getOrCreate(raw.Labels)
		t := raw.T.UnixMilli()
		if n := len(ser.samples); n > 0 && ser.samples[n-1].T >= t {
			continue
		}
		ser.samples = append(ser.samples, types.Sample{T: t, V: raw.V})
		appended++
	}
	s.samples += appended
	return appended
}

// getOrCreate returns the series for the exact label set, creating it on
// first use. Callers must hold the write lock.
func (s *Store) getOrCreate(labels types.Labels) *memSeries {
	fp := fingerprint(labels)
	for _, ser := range s.series[fp] {
		if labelsEqual(ser.labels, labels) {
			return ser
		}
	}
	ser := &memSeries{labels: labels.Clone()}
	s.series[fp] = append(s.series[fp], ser)
	return ser
}

// SeriesCount returns the number of distinct series currently held.
func (s *Store) SeriesCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, list := range s.series {
		n += len(list)
	}
	return n
}

// SampleCount returns the number of samples currently held.
func (s *Store) SampleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.samples
}

// Evict drops samples older than now minus retention and removes series
// that end up empty. It returns the number of samples removed.
func (s *Store) Evict(now time.Time) int {
	cutoff := now.Add(-s.retention).UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for fp, list := range s.series {
		kept := list[:0]
		for _, ser := range list {
			i := sort.Search(len(ser.samples), func(i int) bool {
				return ser.samples[i].T >= cutoff
			})
			if i > 0 {
				removed += i
				ser.samples = append([]types.Sample(nil), ser.samples[i:]...)
			}
			if len(ser.samples) > 0 {
				kept = append(kept, ser)
			}
		}
		if len(kept) == 0 {
			delete(s.series, fp)
		} else {
			s.series[fp] = kept
		}
	}
	s.samples -= removed
	return removed
}

// Run starts the background retention eviction loop. It ticks at a tenth of
// the retention window (minimum 1 second, maximum 1 minute) and blocks
// until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.retention / 10
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("tsdb: evicted expired samples", "count", n)
			}
		}
	}
}

// fingerprint hashes a label set order-independently.
func fingerprint(labels types.Labels) uint64 {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	for _, k := range keys {
		h.Write([]byte(k))         //nolint:errcheck
		h.Write([]byte{0xff})      //nolint:errcheck
		h.Write([]byte(labels[k])) //nolint:errcheck
		h.Write([]byte{0xff})      //nolint:errcheck
	}
	return h.Sum64()
}

func labelsEqual(a, b types.Labels) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
