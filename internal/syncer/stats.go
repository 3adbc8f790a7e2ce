package syncer

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/vishu3131/civisync/domain"
)

const statsCacheKey = "sync_stats"

// StatsReporter recomputes aggregate sync counts on demand, serving repeat
// callers from a short-lived cache. It has no side effects on sync state.
type StatsReporter struct {
	profiles domain.ProfileRepository
	cache    *ttlcache.Cache[string, *domain.SyncStats]
}

func NewStatsReporter(profiles domain.ProfileRepository, ttl time.Duration) *StatsReporter {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.SyncStats](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.SyncStats](),
	)
	go cache.Start()

	return &StatsReporter{
		profiles: profiles,
		cache:    cache,
	}
}

// Stats returns the current aggregates, recomputing at most once per TTL.
func (s *StatsReporter) Stats(ctx context.Context) (*domain.SyncStats, error) {
	if item := s.cache.Get(statsCacheKey); item != nil {
		return item.Value(), nil
	}
	stats, err := s.profiles.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(statsCacheKey, stats, ttlcache.DefaultTTL)
	return stats, nil
}

// Invalidate drops the cached aggregates so the next read recomputes.
func (s *StatsReporter) Invalidate() {
	s.cache.Delete(statsCacheKey)
}

// Close stops the cache cleanup goroutine.
func (s *StatsReporter) Close() {
	s.cache.Stop()
}
