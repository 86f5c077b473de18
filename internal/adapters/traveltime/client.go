// Package traveltime is a client for travel-time isochrone APIs such as
// OpenTripPlanner's /otp/traveltime/isochrone.
package traveltime

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
	// ErrUpstreamStatus is returned for non-2xx responses.
	ErrUpstreamStatus = errors.New("travel-time API returned non-2xx status")
	// ErrMalformedBody is returned when the body is not a FeatureCollection.
	ErrMalformedBody = errors.New("malformed isochrone response")
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 32 << 20

// Client implements ports.IsochroneFetcher over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// BuildURL renders the request URL for q.
func (c *Client) BuildURL(q domain.IsochroneQuery) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	params := u.Query()
	params.Set("location", q.Location.LatLng())
	params.Set("time", q.FormattedTime())
	params.Del("cutoff")
	for _, cutoff := range q.Cutoffs {
		params.Add("cutoff", cutoff)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// FetchIsochrones issues one GET for q and decodes the FeatureCollection.
func (c *Client) FetchIsochrones(ctx context.Context, q domain.IsochroneQuery) (*domain.FeatureCollection, error) {
	ctx, span := otel.Tracer("isoview/traveltime").Start(ctx, telemetry.SpanIsochroneFetch)
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.AttrCutoffCount, len(q.Cutoffs)))

	fc, err := c.fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrFeatureCount, len(fc.Features)))
	return fc, nil
}

func (c *Client) fetch(ctx context.Context, q domain.IsochroneQuery) (*domain.FeatureCollection, error) {
	reqURL, err := c.BuildURL(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(telemetry.AttrHTTPStatus, resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d %s", ErrUpstreamStatus, resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var fc domain.FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if fc.Features == nil {
		fc.Features = []domain.Feature{}
	}
	return &fc, nil
}
