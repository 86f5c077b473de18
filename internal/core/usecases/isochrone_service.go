package usecases

import (
	"context"
	"encoding/json"

	"github.com/samirrijal/isoview/internal/core/domain"
	"github.com/samirrijal/isoview/internal/core/ports"
	"github.com/samirrijal/isoview/internal/pkg/metrics"
)

// IsochroneService is a read-through cache in front of an IsochroneFetcher.
type IsochroneService struct {
	fetcher ports.IsochroneFetcher
	cache   ports.CacheService
	ttl     int
}

// NewIsochroneService creates a new IsochroneService. cache may be nil;
// a ttl of zero disables caching.
func NewIsochroneService(fetcher ports.IsochroneFetcher, cache ports.CacheService, ttlSeconds int) *IsochroneService {
	return &IsochroneService{fetcher: fetcher, cache: cache, ttl: ttlSeconds}
}

func (s *IsochroneService) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// FetchIsochrones returns the cached collection for q or fetches it.
func (s *IsochroneService) FetchIsochrones(ctx context.Context, q domain.IsochroneQuery) (*domain.FeatureCollection, error) {
	cacheKey := q.Key()
	if s.cacheEnabled() {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var fc domain.FeatureCollection
			if err := json.Unmarshal(data, &fc); err == nil && fc.Validate() == nil {
				metrics.CacheHits.WithLabelValues("isochrones").Inc()
				return &fc, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("isochrones").Inc()
	}

	fc, err := s.fetcher.FetchIsochrones(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if data, err := json.Marshal(fc); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttl)
		}
	}

	return fc, nil
}
