package usecases

import (
	"context"

	"github.com/samirrijal/isoview/internal/core/domain"
)

// NopMapView discards every map command. Clients then poll the REST API.
type NopMapView struct{}

func (NopMapView) Create(context.Context, domain.MapSetup) error { return nil }
func (NopMapView) SetSourceData(context.Context, string, *domain.FeatureCollection) error {
	return nil
}
func (NopMapView) SetMarker(context.Context, domain.Coordinate) error { return nil }
func (NopMapView) FlyTo(context.Context, domain.Coordinate) error     { return nil }
func (NopMapView) FocusSearch(context.Context) error                  { return nil }
func (NopMapView) Dispose(context.Context) error                      { return nil }
