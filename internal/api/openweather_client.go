// Package api fetches raw current-conditions, forecast and geocoding JSON
// from OpenWeatherMap.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"weatherdash/internal/metrics"
	"weatherdash/internal/models"

	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org"

	currentPath  = "/data/2.5/weather"
	forecastPath = "/data/2.5/forecast"
	geocodePath  = "/geo/1.0/direct"

	maxBodyBytes = 4 << 20
)

// ErrDataUnavailable means the provider returned nothing usable for a request.
// Callers treat it as "not found" and must not persist anything.
var ErrDataUnavailable = errors.New("weather data unavailable")

// ErrMissingAPIKey is returned before any request when no key is configured
var ErrMissingAPIKey = errors.New("openweather api key is not configured")

// OpenWeatherClient is a client for the OpenWeatherMap API
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	units   string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

type RequestParams struct {
	Path  string
	Query string
	Units string
	Limit int
}

type Option func(*OpenWeatherClient)

// WithBaseURL points the client at another host, e.g. a test server
func WithBaseURL(baseURL string) Option {
	return func(c *OpenWeatherClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenWeatherClient) {
		c.httpCfg.Client = client
	}
}

func WithBackoff(b BackoffConfig) Option {
	return func(c *OpenWeatherClient) {
		c.httpCfg.Backoff = b
	}
}

// NewOpenWeatherClient creates a new OpenWeatherMap client. units is passed
// through as the provider's units parameter (imperial, metric or standard).
func NewOpenWeatherClient(apiKey, units string, opts ...Option) *OpenWeatherClient {
	c := &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		units:   units,
		httpCfg: HTTPClientConfig{
			Client:  &http.Client{Timeout: 10 * time.Second},
			Backoff: defaultBackoff(),
		},
		circuit: newCircuitBreaker("openweather"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Units returns the unit system requested from the provider
func (c *OpenWeatherClient) Units() string {
	return c.units
}

// BuildURL builds the request URL for params
func (c *OpenWeatherClient) BuildURL(params RequestParams) string {
	values := url.Values{}
	values.Set("appid", c.apiKey)
	values.Set("q", params.Query)

	if params.Units != "" {
		values.Set("units", params.Units)
	}
	if params.Limit > 0 {
		values.Set("limit", fmt.Sprintf("%d", params.Limit))
	}

	return fmt.Sprintf("%s%s?%s", c.baseURL, params.Path, values.Encode())
}

// CurrentWeather returns the raw current-conditions JSON for city
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, city string) ([]byte, error) {
	return c.fetch(ctx, "weather", RequestParams{Path: currentPath, Query: city, Units: c.units})
}

// Forecast returns the raw 5 day / 3 hour forecast JSON for city
func (c *OpenWeatherClient) Forecast(ctx context.Context, city string) ([]byte, error) {
	return c.fetch(ctx, "forecast", RequestParams{Path: forecastPath, Query: city, Units: c.units})
}

type geocodeEntry struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Geocode resolves a free-text place name to at most limit candidate places
func (c *OpenWeatherClient) Geocode(ctx context.Context, query string, limit int) ([]models.Place, error) {
	if limit <= 0 {
		limit = 5
	}

	body, err := c.fetch(ctx, "geocode", RequestParams{Path: geocodePath, Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}

	var entries []geocodeEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: failed to decode geocoding response: %v", ErrDataUnavailable, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no place matches %q", ErrDataUnavailable, query)
	}

	places := make([]models.Place, 0, len(entries))
	for _, e := range entries {
		places = append(places, models.Place{
			Name:    e.Name,
			State:   e.State,
			Country: e.Country,
			Lat:     e.Lat,
			Lon:     e.Lon,
		})
	}
	return places, nil
}

func (c *OpenWeatherClient) fetch(ctx context.Context, endpoint string, params RequestParams) (body []byte, err error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(params.Query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrDataUnavailable)
	}

	start := time.Now()
	defer func() {
		metrics.RecordFetch(endpoint, time.Since(start), err)
	}()

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.BuildURL(params), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s request for %q failed: %v", ErrDataUnavailable, endpoint, params.Query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: API error: status %d, body: %s", ErrDataUnavailable, resp.StatusCode, string(msg))
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrDataUnavailable, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrDataUnavailable)
	}
	return body, nil
}
