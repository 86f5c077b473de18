package ports

import (
	"context"

	"github.com/samirrijal/isoview/internal/core/domain"
)

// IsochroneFetcher retrieves isochrone polygons from a travel-time API.
type IsochroneFetcher interface {
	FetchIsochrones(ctx context.Context, q domain.IsochroneQuery) (*domain.FeatureCollection, error)
}

// PlaceSearcher resolves free text into place candidates.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, text string) ([]domain.PlaceCandidate, error)
}

// MapView is the map widget boundary: the controller drives the widget only
// through these commands.
type MapView interface {
	// Create builds the map instance, the draggable marker and the
	// isochrone source/layer pair.
	Create(ctx context.Context, setup domain.MapSetup) error
	// SetSourceData replaces the data behind a geometry source wholesale.
	SetSourceData(ctx context.Context, sourceID string, fc *domain.FeatureCollection) error
	SetMarker(ctx context.Context, c domain.Coordinate) error
	FlyTo(ctx context.Context, c domain.Coordinate) error
	FocusSearch(ctx context.Context) error
	Dispose(ctx context.Context) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// LocationCommandSubscriber delivers externally issued marker moves.
type LocationCommandSubscriber interface {
	SubscribeLocationCommands(ctx context.Context, handler func(ctx context.Context, c domain.Coordinate) error) error
}
