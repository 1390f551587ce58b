// Package stac provides a client for STAC-style scene catalog search APIs.
package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/time/rate"

	"github.com/sells-group/satfeat-cli/internal/resilience"
)

// Client defines the catalog search operations.
type Client interface {
	// Search runs one POST /search against the catalog and returns the
	// matching items in catalog order.
	Search(ctx context.Context, params SearchParams) ([]Item, error)
}

// SearchParams describes one catalog query.
type SearchParams struct {
	Collection  string
	Intersects  geom.T  // search region in EPSG:4326
	DateStart   string  // inclusive, RFC 3339 date
	DateEnd     string  // inclusive, RFC 3339 date
	MaxCloudPct float64 // only items strictly below this cloud cover
	Limit       int
}

// Item is one catalog search result.
type Item struct {
	ID         string
	Footprint  geom.T
	CloudCover float64
	AcquiredAt time.Time
	Assets     map[string]string // band name -> signed access URL
}

// Option configures the catalog client.
type Option func(*httpClient)

// WithBaseURL sets a custom catalog base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithToken sets a bearer token for catalogs that require one.
func WithToken(token string) Option {
	return func(c *httpClient) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing search requests per second across all callers.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a catalog client for the given STAC API root.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(4), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.OnRetry = resilience.RetryLogger("stac", "search")
	return c
}

// searchRequest is the STAC API POST /search body.
type searchRequest struct {
	Collections []string                      `json:"collections"`
	Intersects  json.RawMessage               `json:"intersects,omitempty"`
	Datetime    string                        `json:"datetime,omitempty"`
	Limit       int                           `json:"limit,omitempty"`
	Query       map[string]map[string]float64 `json:"query,omitempty"`
}

// itemCollection is the GeoJSON FeatureCollection the catalog returns.
type itemCollection struct {
	Features []rawItem `json:"features"`
}

type rawItem struct {
	ID         string          `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties struct {
		CloudCover float64 `json:"eo:cloud_cover"`
		Datetime   string  `json:"datetime"`
	} `json:"properties"`
	Assets map[string]struct {
		Href string `json:"href"`
	} `json:"assets"`
}

func (c *httpClient) Search(ctx context.Context, params SearchParams) ([]Item, error) {
	body, err := buildSearchBody(params)
	if err != nil {
		return nil, err
	}

	respBody, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, c.baseURL+"/search", body)
	})
	if err != nil {
		return nil, eris.Wrap(err, "stac: search request failed")
	}

	return parseItems(respBody)
}

func buildSearchBody(params SearchParams) ([]byte, error) {
	req := searchRequest{
		Collections: []string{params.Collection},
		Limit:       params.Limit,
	}
	if params.Intersects != nil {
		raw, err := geojson.Marshal(params.Intersects)
		if err != nil {
			return nil, eris.Wrap(err, "stac: marshal search region")
		}
		req.Intersects = raw
	}
	if params.DateStart != "" || params.DateEnd != "" {
		req.Datetime = params.DateStart + "/" + params.DateEnd
	}
	if params.MaxCloudPct > 0 {
		req.Query = map[string]map[string]float64{
			"eo:cloud_cover": {"lt": params.MaxCloudPct},
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "stac: marshal search request")
	}
	return body, nil
}

// post runs one rate-limited request. Transient statuses come back as
// resilience.TransientError so DoVal retries them.
func (c *httpClient) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "stac: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/geo+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("stac: status %d: %s", resp.StatusCode, truncate(respBody, 512))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	return respBody, nil
}

func parseItems(body []byte) ([]Item, error) {
	var coll itemCollection
	if err := json.Unmarshal(body, &coll); err != nil {
		return nil, eris.Wrap(err, "stac: unmarshal search response")
	}

	items := make([]Item, 0, len(coll.Features))
	for _, f := range coll.Features {
		item := Item{
			ID:         f.ID,
			CloudCover: f.Properties.CloudCover,
			Assets:     make(map[string]string, len(f.Assets)),
		}

		if len(f.Geometry) > 0 {
			var g geom.T
			if err := geojson.Unmarshal(f.Geometry, &g); err != nil {
				return nil, eris.Wrapf(err, "stac: decode footprint for item %s", f.ID)
			}
			item.Footprint = g
		}

		if f.Properties.Datetime != "" {
			t, err := time.Parse(time.RFC3339, f.Properties.Datetime)
			if err != nil {
				return nil, eris.Wrapf(err, "stac: parse datetime for item %s", f.ID)
			}
			item.AcquiredAt = t
		}

		for name, asset := range f.Assets {
			item.Assets[name] = asset.Href
		}

		items = append(items, item)
	}
	return items, nil
}
