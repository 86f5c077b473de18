package traveltime_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/isoview/internal/adapters/traveltime"
	"github.com/samirrijal/isoview/internal/core/domain"
)

const isochroneBody = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"time": 900},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[-2.94,43.26],[-2.93,43.26],[-2.93,43.27],[-2.94,43.26]]]]}},
    {"type": "Feature", "properties": {"time": 1800},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[-2.95,43.25],[-2.92,43.25],[-2.92,43.28],[-2.95,43.25]]]]}}
  ]
}`

func testQuery() domain.IsochroneQuery {
	return domain.IsochroneQuery{
		Location: domain.Coordinate{Lng: -2.935, Lat: 43.263},
		Time:     time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC),
		Cutoffs:  []string{"15m", "30m"},
	}
}

func TestFetchIsochrones_QueryParameters(t *testing.T) {
	var got url.Values
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(isochroneBody))
	}))
	defer srv.Close()

	c := traveltime.NewClient(srv.URL+"/otp/traveltime/isochrone", 5*time.Second)
	fc, err := c.FetchIsochrones(context.Background(), testQuery())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"43.263,-2.935"}, got["location"], "location must be lat,lng")
	assert.Equal(t, []string{"2024-05-06T08:30:00.000Z"}, got["time"])
	assert.Equal(t, []string{"15m", "30m"}, got["cutoff"])

	require.Len(t, fc.Features, 2)
	assert.Equal(t, []float64{900, 1800}, fc.Times())
}

func TestBuildURL_KeepsEndpointParams(t *testing.T) {
	c := traveltime.NewClient("http://otp.local/isochrone?modes=WALK,TRANSIT", time.Second)
	raw, err := c.BuildURL(testQuery())
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "WALK,TRANSIT", q.Get("modes"))
	assert.Len(t, q["cutoff"], 2)
	assert.Len(t, q["location"], 1)
	assert.Len(t, q["time"], 1)
}

func TestFetchIsochrones_NonTimeZoneUTC(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("time")
		_, _ = w.Write([]byte(isochroneBody))
	}))
	defer srv.Close()

	q := testQuery()
	q.Time = time.Date(2024, 5, 6, 10, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

	_, err := traveltime.NewClient(srv.URL, time.Second).FetchIsochrones(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06T08:30:00.000Z", got)
}

func TestFetchIsochrones_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "router not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := traveltime.NewClient(srv.URL, time.Second).FetchIsochrones(context.Background(), testQuery())
	require.Error(t, err)
	assert.True(t, errors.Is(err, traveltime.ErrUpstreamStatus))
}

func TestFetchIsochrones_MalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json":    `<html>oops</html>`,
		"wrong type":  `{"type":"Feature","features":[]}`,
		"bad feature": `{"type":"FeatureCollection","features":{}}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := traveltime.NewClient(srv.URL, time.Second).FetchIsochrones(context.Background(), testQuery())
			require.Error(t, err)
			assert.True(t, errors.Is(err, traveltime.ErrMalformedBody), "got %v", err)
		})
	}
}

func TestFetchIsochrones_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := traveltime.NewClient(endpoint, time.Second).FetchIsochrones(context.Background(), testQuery())
	assert.Error(t, err)
}
