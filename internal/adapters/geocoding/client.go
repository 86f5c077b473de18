// Package geocoding is a client for Pelias-style autocomplete endpoints.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/isoview/internal/core/domain"
	"github.com/samirrijal/isoview/internal/pkg/telemetry"
)

var (
	ErrUpstreamStatus = errors.New("geocoder returned non-2xx status")
	ErrMalformedBody  = errors.New("malformed geocoder response")
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// searchResponse mirrors the subset of the geocoder response we read.
type searchResponse struct {
	Features []searchFeature `json:"features"`
}

type searchFeature struct {
	Properties struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lng, lat]
	} `json:"geometry"`
}

// Client implements ports.PlaceSearcher over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a geocoding client.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// SearchPlaces issues GET <endpoint>?text=<text>.
func (c *Client) SearchPlaces(ctx context.Context, text string) ([]domain.PlaceCandidate, error) {
	ctx, span := otel.Tracer("isoview/geocoding").Start(ctx, telemetry.SpanPlaceSearch)
	defer span.End()

	places, err := c.search(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrCandidateCount, len(places)))
	return places, nil
}

func (c *Client) search(ctx context.Context, text string) ([]domain.PlaceCandidate, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	params := u.Query()
	params.Set("text", text)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(telemetry.AttrHTTPStatus, resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	places := make([]domain.PlaceCandidate, 0, len(result.Features))
	for _, f := range result.Features {
		p, ok := convertFeature(f)
		if !ok {
			continue
		}
		places = append(places, p)
	}
	return places, nil
}

// convertFeature drops features without an id or a usable [lng, lat] pair.
func convertFeature(f searchFeature) (domain.PlaceCandidate, bool) {
	if f.Properties.ID == "" || len(f.Geometry.Coordinates) < 2 {
		return domain.PlaceCandidate{}, false
	}
	loc := domain.Coordinate{Lng: f.Geometry.Coordinates[0], Lat: f.Geometry.Coordinates[1]}
	if !loc.Valid() {
		return domain.PlaceCandidate{}, false
	}
	return domain.PlaceCandidate{
		ID:       f.Properties.ID,
		Name:     f.Properties.Name,
		Location: loc,
	}, true
}
