package usecases

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/samirrijal/isoview/internal/core/domain"
	"github.com/samirrijal/isoview/internal/core/ports"
	"github.com/samirrijal/isoview/internal/pkg/metrics"
)

// PlaceService is a read-through cache in front of a PlaceSearcher.
type PlaceService struct {
	searcher ports.PlaceSearcher
	cache    ports.CacheService
	ttl      int
}

// NewPlaceService creates a new PlaceService. cache may be nil.
func NewPlaceService(searcher ports.PlaceSearcher, cache ports.CacheService, ttlSeconds int) *PlaceService {
	return &PlaceService{searcher: searcher, cache: cache, ttl: ttlSeconds}
}

// SearchPlaces returns candidates for text. The cache key ignores case.
func (s *PlaceService) SearchPlaces(ctx context.Context, text string) ([]domain.PlaceCandidate, error) {
	useCache := s.cache != nil && s.ttl > 0
	cacheKey := "places:search:" + strings.ToLower(text)
	if useCache {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var places []domain.PlaceCandidate
			if err := json.Unmarshal(data, &places); err == nil {
				metrics.CacheHits.WithLabelValues("places").Inc()
				return places, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("places").Inc()
	}

	places, err := s.searcher.SearchPlaces(ctx, text)
	if err != nil {
		return nil, err
	}

	if useCache {
		if data, err := json.Marshal(places); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttl)
		}
	}

	return places, nil
}
