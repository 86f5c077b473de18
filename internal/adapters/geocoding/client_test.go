package geocoding_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/isoview/internal/adapters/geocoding"
	"github.com/samirrijal/isoview/internal/core/domain"
)

const searchBody = `{
  "features": [
    {"properties": {"id": "node/1", "name": "Abando"}, "geometry": {"coordinates": [-2.9356, 43.2614]}},
    {"properties": {"id": "", "name": "no id"}, "geometry": {"coordinates": [0, 0]}},
    {"properties": {"id": "node/3", "name": "no coords"}, "geometry": {"coordinates": []}},
    {"properties": {"id": "way/2", "name": "Moyua"}, "geometry": {"coordinates": [-2.9347, 43.2630]}}
  ]
}`

func TestSearchPlaces(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text = r.URL.Query().Get("text")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := geocoding.NewClient(srv.URL+"/v1/autocomplete", time.Second)
	places, err := c.SearchPlaces(context.Background(), "plaza moyua")
	require.NoError(t, err)

	assert.Equal(t, "plaza moyua", text)
	require.Len(t, places, 2)
	assert.Equal(t, domain.PlaceCandidate{
		ID:       "node/1",
		Name:     "Abando",
		Location: domain.Coordinate{Lng: -2.9356, Lat: 43.2614},
	}, places[0])
	assert.Equal(t, "way/2", places[1].ID)
}

func TestSearchPlaces_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	}))
	defer srv.Close()

	places, err := geocoding.NewClient(srv.URL, time.Second).SearchPlaces(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestSearchPlaces_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		_, err := geocoding.NewClient(srv.URL, time.Second).SearchPlaces(context.Background(), "x")
		assert.True(t, errors.Is(err, geocoding.ErrUpstreamStatus))
	})

	t.Run("body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[1,2`))
		}))
		defer srv.Close()
		_, err := geocoding.NewClient(srv.URL, time.Second).SearchPlaces(context.Background(), "x")
		assert.True(t, errors.Is(err, geocoding.ErrMalformedBody))
	})
}

func TestSearchPlaces_OversizedBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features": [`))
		_, _ = w.Write([]byte(strings.Repeat(" ", 5<<20)))
		_, _ = w.Write([]byte(`]}`))
	}))
	defer srv.Close()

	_, err := geocoding.NewClient(srv.URL, 5*time.Second).SearchPlaces(context.Background(), "abando")
	assert.ErrorIs(t, err, geocoding.ErrMalformedBody)
}
