package congestion

import (
	"context"
	"sync"
)

// FlowFetcher fetches a live speed pair for a coordinate.
type FlowFetcher interface {
	FetchFlow(ctx context.Context, lat, lon float64) (Speeds, error)
}

// Stats counts cache and upstream activity for one resolver instance. It
// replaces the original's process-wide counters; callers read a copy via
// Snapshot.
type Stats struct {
	mu            sync.Mutex
	CacheHits     int
	UpstreamCalls int
	Failures      int
}

// StatsSnapshot is a point-in-time copy of resolver counters.
type StatsSnapshot struct {
	CacheHits     int
	UpstreamCalls int
	Failures      int
}

func (s *Stats) hit() {
	s.mu.Lock()
	s.CacheHits++
	s.mu.Unlock()
}

func (s *Stats) call(failed bool) {
	s.mu.Lock()
	s.UpstreamCalls++
	if failed {
		s.Failures++
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		CacheHits:     s.CacheHits,
		UpstreamCalls: s.UpstreamCalls,
		Failures:      s.Failures,
	}
}

// Resolver is the shared read-through congestion lookup: a cache hit never
// pays upstream-API cost, a miss fetches from upstream and caches any valid
// result. The same instance serves the collector and the route evaluator.
type Resolver struct {
	cache   *Cache
	fetcher FlowFetcher
	stats   *Stats
}

func NewResolver(cache *Cache, fetcher FlowFetcher) *Resolver {
	return &Resolver{
		cache:   cache,
		fetcher: fetcher,
		stats:   &Stats{},
	}
}

// Resolve returns the speed pair for a coordinate, from cache when
// possible. Upstream failures surface as errors; a successful fetch with
// missing speed fields is returned as an invalid pair and is not cached.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) (Speeds, error) {
	if s, ok := r.cache.Get(lat, lon); ok {
		r.stats.hit()
		return s, nil
	}

	s, err := r.fetcher.FetchFlow(ctx, lat, lon)
	r.stats.call(err != nil)
	if err != nil {
		return Speeds{}, err
	}

	if s.Valid() {
		r.cache.Put(lat, lon, s)
	}
	return s, nil
}

// Stats returns a copy of the resolver's counters.
func (r *Resolver) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}
