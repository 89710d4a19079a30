package llm

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// StatsSnapshot aggregates recent call outcomes for one client:
// latency percentiles over successful calls plus failure counters,
// with rate-limit rejections broken out.
type StatsSnapshot struct {
	Count       int     `json:"count"`
	Failures    int     `json:"failures"`
	RateLimited int     `json:"rate_limited"`
	MinMs       int64   `json:"min_ms"`
	MaxMs       int64   `json:"max_ms"`
	AvgMs       float64 `json:"avg_ms"`
	P50Ms       int64   `json:"p50_ms"`
	P95Ms       int64   `json:"p95_ms"`
	P99Ms       int64   `json:"p99_ms"`
}

type outcome struct {
	at          time.Time
	durationMs  int64
	failed      bool
	rateLimited bool
}

// Stats keeps a rolling window of call outcomes.
type Stats struct {
	mu     sync.Mutex
	window time.Duration
	recent []outcome
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window}
}

// RecordSuccess adds a completed call with its latency.
func (s *Stats) RecordSuccess(d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	s.add(outcome{durationMs: ms})
}

// RecordFailure adds a failed call, classifying 429 rejections
// separately so throttling is visible in the stats endpoint.
func (s *Stats) RecordFailure(err error) {
	var re *RetryableError
	s.add(outcome{failed: true, rateLimited: errors.As(err, &re) && re.StatusCode == 429})
}

func (s *Stats) add(o outcome) {
	o.at = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(o.at)
	s.recent = append(s.recent, o)
}

// evict drops outcomes older than the window. Entries arrive in time
// order, so the live portion is the suffix after the first fresh one.
func (s *Stats) evict(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.recent) && s.recent[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.recent = append(s.recent[:0], s.recent[i:]...)
	}
}

// Snapshot aggregates the live window.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(time.Now())

	var snap StatsSnapshot
	var latencies []int64
	var sum int64
	for _, o := range s.recent {
		if o.failed {
			snap.Failures++
			if o.rateLimited {
				snap.RateLimited++
			}
			continue
		}
		latencies = append(latencies, o.durationMs)
		sum += o.durationMs
	}
	snap.Count = len(latencies)
	if snap.Count == 0 {
		return snap
	}

	slices.Sort(latencies)
	snap.MinMs = latencies[0]
	snap.MaxMs = latencies[len(latencies)-1]
	snap.AvgMs = float64(sum) / float64(len(latencies))
	snap.P50Ms = nearestRank(latencies, 50)
	snap.P95Ms = nearestRank(latencies, 95)
	snap.P99Ms = nearestRank(latencies, 99)
	return snap
}

// nearestRank picks the pct-th percentile of a sorted slice by the
// nearest-rank method.
func nearestRank(sorted []int64, pct int) int64 {
	rank := (pct*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
