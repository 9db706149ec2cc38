// Package weather fetches daily point weather from the NASA POWER API and
// reduces it to a WeatherSummary. Unlike the satellite fetcher, any upstream
// failure here is returned to the caller: there is no fallback.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"fieldfusion/clock"
	"fieldfusion/models"
)

const (
	DefaultBaseURL   = "https://power.larc.nasa.gov/api/temporal/daily/point"
	DefaultCommunity = "ag"
	DefaultTimeout   = 30 * time.Second

	paramTemp     = "T2M"
	paramHumidity = "RH2M"
	paramPrecip   = "PRECTOTCORR"

	dateLayout = "20060102"
)

// Config is the provider endpoint and per-call timeout.
type Config struct {
	BaseURL   string
	Community string
	Timeout   time.Duration
}

// HTTPClient allows swapping http.Client in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// UpstreamError is a transport failure (Status == 0) or a non-2xx reply.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("weather provider unreachable: %v", e.Err)
	}
	return fmt.Sprintf("weather provider non-2xx: %d, body: %s", e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type Client struct {
	cfg        Config
	httpClient HTTPClient
	clock      clock.Clock
}

type ClientOption func(*Client)

func WithHTTPClient(c HTTPClient) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

func WithClock(c clock.Clock) ClientOption {
	return func(cl *Client) { cl.clock = c }
}

func NewClient(cfg Config, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Community == "" {
		cfg.Community = DefaultCommunity
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		clock:      clock.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// powerResponse is the subset of the POWER JSON we read.
type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// Fetch returns the summary for the trailing window of days ending today.
func (c *Client) Fetch(ctx context.Context, lat, lon float64, days int) (*models.WeatherSummary, error) {
	end := clock.Today(c.clock)
	start := end.AddDate(0, 0, -days)

	q := url.Values{}
	q.Set("parameters", paramTemp+","+paramHumidity+","+paramPrecip)
	q.Set("community", c.cfg.Community)
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("start", start.Format(dateLayout))
	q.Set("end", end.Format(dateLayout))
	q.Set("format", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("Fetching weather", "lat", lat, "lon", lon, "start", start.Format(dateLayout), "end", end.Format(dateLayout))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: snippet(data)}
	}

	var out powerResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode weather resp: %w", err)
	}
	p := out.Properties.Parameter
	summary := Summarize(Series{
		TempC:       ordered(p[paramTemp]),
		HumidityPct: ordered(p[paramHumidity]),
		PrecipMM:    ordered(p[paramPrecip]),
	}, days)
	return &summary, nil
}

// ordered flattens a date-keyed map by ascending date key.
func ordered(byDate map[string]float64) []float64 {
	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = byDate[k]
	}
	return out
}

func snippet(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
