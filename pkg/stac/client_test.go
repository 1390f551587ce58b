package stac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

const itemsResponse = `{
	"type": "FeatureCollection",
	"features": [
		{
			"id": "S2B_123",
			"geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,2],[0,0]]]},
			"properties": {"eo:cloud_cover": 5.2, "datetime": "2023-06-01T10:30:00Z"},
			"assets": {"visual": {"href": "https://example.com/S2B_123/TCI.tif?sig=abc"}}
		},
		{
			"id": "S2A_456",
			"geometry": {"type": "Polygon", "coordinates": [[[1,1],[3,1],[3,3],[1,3],[1,1]]]},
			"properties": {"eo:cloud_cover": 41.0, "datetime": "2023-06-04T10:30:00Z"},
			"assets": {"visual": {"href": "https://example.com/S2A_456/TCI.tif?sig=def"}}
		}
	]
}`

func testParams() SearchParams {
	return SearchParams{
		Collection:  "sentinel-2-l2a",
		Intersects:  geom.NewPolygonFlat(geom.XY, []float64{0, 0, 2, 0, 2, 2, 0, 0}, []int{8}),
		DateStart:   "2023-01-01",
		DateEnd:     "2023-12-31",
		MaxCloudPct: 20,
		Limit:       200,
	}
}

func TestSearchParsesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []any{"sentinel-2-l2a"}, req["collections"])
		assert.Equal(t, "2023-01-01/2023-12-31", req["datetime"])
		assert.EqualValues(t, 200, req["limit"])

		query, ok := req["query"].(map[string]any)
		require.True(t, ok, "query filter missing")
		cc, ok := query["eo:cloud_cover"].(map[string]any)
		require.True(t, ok, "cloud cover filter missing")
		assert.EqualValues(t, 20, cc["lt"])

		_, ok = req["intersects"].(map[string]any)
		assert.True(t, ok, "intersects geometry missing")

		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(itemsResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(1000))
	items, err := c.Search(context.Background(), testParams())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "S2B_123", items[0].ID)
	assert.InDelta(t, 5.2, items[0].CloudCover, 0.001)
	assert.Equal(t, "https://example.com/S2B_123/TCI.tif?sig=abc", items[0].Assets["visual"])
	assert.Equal(t, time.Date(2023, 6, 1, 10, 30, 0, 0, time.UTC), items[0].AcquiredAt)
	require.NotNil(t, items[0].Footprint)
	poly, ok := items[0].Footprint.(*geom.Polygon)
	require.True(t, ok, "expected polygon footprint, got %T", items[0].Footprint)
	assert.Equal(t, 1, poly.NumLinearRings())

	// Order preserved as returned by the catalog.
	assert.Equal(t, "S2A_456", items[1].ID)
}

func TestSearchEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(1000))
	items, err := c.Search(context.Background(), testParams())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream flaked", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(itemsResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(1000))
	c.(*httpClient).retry.InitialBackoff = time.Millisecond

	items, err := c.Search(context.Background(), testParams())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, calls.Load())
}

func TestSearchPermanentStatusFails(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(1000))
	_, err := c.Search(context.Background(), testParams())
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load(), "permanent failures must not be retried")
}

func TestSearchTokenHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithToken("sekrit"), WithRateLimit(1000))
	_, err := c.Search(context.Background(), testParams())
	require.NoError(t, err)
}
