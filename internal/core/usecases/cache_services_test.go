package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/isoview/internal/core/domain"
	"github.com/samirrijal/isoview/internal/core/usecases"
)

// --- In-memory CacheService ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttlSeconds
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func testQuery() domain.IsochroneQuery {
	return domain.IsochroneQuery{
		Location: bilbao,
		Time:     time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC),
		Cutoffs:  []string{"15m", "30m"},
	}
}

func TestIsochroneService_CachesByQuery(t *testing.T) {
	f := &mockFetcher{}
	cache := newMemCache()
	svc := usecases.NewIsochroneService(f, cache, 60)

	for i := 0; i < 3; i++ {
		fc, err := svc.FetchIsochrones(context.Background(), testQuery())
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(fc.Features) != 1 {
			t.Fatalf("expected 1 feature, got %d", len(fc.Features))
		}
	}
	if n := len(f.calls()); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
	if ttl := cache.ttls[testQuery().Key()]; ttl != 60 {
		t.Errorf("expected ttl 60, got %d", ttl)
	}

	q := testQuery()
	q.Cutoffs = []string{"30m", "15m"}
	if _, err := svc.FetchIsochrones(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if n := len(f.calls()); n != 2 {
		t.Errorf("cutoff order is part of the key, expected 2 calls, got %d", n)
	}
}

func TestIsochroneService_NilCache(t *testing.T) {
	f := &mockFetcher{}
	svc := usecases.NewIsochroneService(f, nil, 60)

	for i := 0; i < 2; i++ {
		if _, err := svc.FetchIsochrones(context.Background(), testQuery()); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(f.calls()); n != 2 {
		t.Errorf("expected 2 upstream calls without cache, got %d", n)
	}
}

func TestIsochroneService_ZeroTTLDisablesCache(t *testing.T) {
	f := &mockFetcher{}
	cache := newMemCache()
	svc := usecases.NewIsochroneService(f, cache, 0)

	if _, err := svc.FetchIsochrones(context.Background(), testQuery()); err != nil {
		t.Fatal(err)
	}
	if len(cache.data) != 0 {
		t.Errorf("expected nothing cached, got %d entries", len(cache.data))
	}
}

func TestIsochroneService_ErrorNotCached(t *testing.T) {
	f := &mockFetcher{
		fetchFn: func(ctx context.Context, q domain.IsochroneQuery) (*domain.FeatureCollection, error) {
			return nil, errors.New("upstream status 502")
		},
	}
	cache := newMemCache()
	svc := usecases.NewIsochroneService(f, cache, 60)

	if _, err := svc.FetchIsochrones(context.Background(), testQuery()); err == nil {
		t.Fatal("expected error")
	}
	if len(cache.data) != 0 {
		t.Errorf("failed fetch must not be cached")
	}
}

func TestIsochroneService_CorruptEntryRefetches(t *testing.T) {
	f := &mockFetcher{}
	cache := newMemCache()
	cache.data[testQuery().Key()] = []byte(`{"type":"Feature"}`)
	svc := usecases.NewIsochroneService(f, cache, 60)

	if _, err := svc.FetchIsochrones(context.Background(), testQuery()); err != nil {
		t.Fatal(err)
	}
	if n := len(f.calls()); n != 1 {
		t.Errorf("expected refetch for corrupt entry, got %d calls", n)
	}
}

func TestPlaceService_CachesCaseInsensitive(t *testing.T) {
	s := &mockSearcher{
		searchFn: func(ctx context.Context, text string) ([]domain.PlaceCandidate, error) {
			return []domain.PlaceCandidate{{ID: "node/1", Name: "Abando", Location: bilbao}}, nil
		},
	}
	svc := usecases.NewPlaceService(s, newMemCache(), 300)

	for _, text := range []string{"Abando", "abando", "ABANDO"} {
		places, err := svc.SearchPlaces(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		if len(places) != 1 || places[0].Location != bilbao {
			t.Fatalf("unexpected places %+v", places)
		}
	}
	if n := len(s.calls()); n != 1 {
		t.Errorf("expected 1 upstream search, got %d", n)
	}
}

func TestPlaceService_Error(t *testing.T) {
	s := &mockSearcher{
		searchFn: func(ctx context.Context, text string) ([]domain.PlaceCandidate, error) {
			return nil, errors.New("geocoder down")
		},
	}
	svc := usecases.NewPlaceService(s, nil, 300)
	if _, err := svc.SearchPlaces(context.Background(), "moyua"); err == nil {
		t.Fatal("expected error")
	}
}
