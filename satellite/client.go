// Package satellite fetches a small Sentinel-2 raster around a point and
// reduces it to an IndicesSnapshot. Provider trouble never fails the request:
// it yields a Degraded result carrying a fixed fallback NDVI. Only a done
// caller context is Fatal.
package satellite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fieldfusion/clock"
	"fieldfusion/models"
	"fieldfusion/raster"

	"golang.org/x/time/rate"
)

const (
	DefaultProcessURL   = "https://sh.dataspace.copernicus.eu/api/v1/process"
	DefaultLookbackDays = 20
	DefaultRasterSize   = 128
	DefaultMaxCloudPct  = 40
	DefaultFallbackNDVI = 0.4

	dataType        = "sentinel-2-l2a"
	mosaickingOrder = "leastCC"
	dateLayout      = "2006-01-02"
)

// Degraded reasons, reported in IndicesSnapshot.DegradedReason.
const (
	ReasonUpstreamStatus     = "upstream_status"
	ReasonTransport          = "transport_error"
	ReasonEmptyRaster        = "empty_raster"
	ReasonDecoderUnavailable = "decoder_unavailable"
	ReasonMalformedRaster    = "malformed_raster"
	ReasonThrottled          = "throttled"
)

// Config is taken as given for FallbackNDVI, so zero is a valid fallback.
// Start from DefaultConfig to get the usual 0.4.
type Config struct {
	ProcessURL    string
	Token         string // optional bearer token
	LookbackDays  int
	Width         int
	Height        int
	MaxCloudPct   int
	FallbackNDVI  float64
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// DefaultConfig mirrors the public anonymous processing endpoint.
func DefaultConfig() Config {
	return Config{
		ProcessURL:    DefaultProcessURL,
		LookbackDays:  DefaultLookbackDays,
		Width:         DefaultRasterSize,
		Height:        DefaultRasterSize,
		MaxCloudPct:   DefaultMaxCloudPct,
		FallbackNDVI:  DefaultFallbackNDVI,
		Timeout:       60 * time.Second,
		RatePerSecond: 2,
		Burst:         1,
	}
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Kind tags a Result.
type Kind int

const (
	KindOK Kind = iota
	KindDegraded
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindDegraded:
		return "degraded"
	case KindFatal:
		return "fatal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Result is Ok(snapshot) | Degraded(fallback snapshot, reason) | Fatal(err).
type Result struct {
	Kind     Kind
	Snapshot models.IndicesSnapshot
	Reason   string
	Err      error
}

type Client struct {
	cfg        Config
	httpClient HTTPClient
	clock      clock.Clock
	limiter    *rate.Limiter
}

type ClientOption func(*Client)

func WithHTTPClient(c HTTPClient) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

func WithClock(c clock.Clock) ClientOption {
	return func(cl *Client) { cl.clock = c }
}

func NewClient(cfg Config, opts ...ClientOption) *Client {
	def := DefaultConfig()
	if cfg.ProcessURL == "" {
		cfg.ProcessURL = def.ProcessURL
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = def.LookbackDays
	}
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		clock:      clock.RealClock{},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch requests the raster for the AOI around (lat, lon).
func (c *Client) Fetch(ctx context.Context, lat, lon float64, radiusM int) Result {
	end := clock.Today(c.clock)
	start := end.AddDate(0, 0, -c.cfg.LookbackDays)
	dataDate := end.Format(dateLayout)

	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return Result{Kind: KindFatal, Err: fmt.Errorf("satellite rate limit: %w", ctx.Err())}
		}
		// the wait would outlast the caller's deadline
		return c.degraded(dataDate, ReasonThrottled, err)
	}

	body, err := json.Marshal(c.buildRequest(lat, lon, radiusM, start, end))
	if err != nil {
		return Result{Kind: KindFatal, Err: fmt.Errorf("marshal process req: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ProcessURL, bytes.NewReader(body))
	if err != nil {
		return Result{Kind: KindFatal, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/tiff")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Kind: KindFatal, Err: fmt.Errorf("satellite fetch: %w", ctx.Err())}
		}
		return c.degraded(dataDate, ReasonTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.degraded(dataDate, ReasonUpstreamStatus, fmt.Errorf("process api non-2xx: %s", resp.Status))
	}
	if err != nil {
		return c.degraded(dataDate, ReasonTransport, err)
	}
	if len(data) == 0 {
		return c.degraded(dataDate, ReasonEmptyRaster, errors.New("empty body"))
	}

	img, err := raster.Decode(data)
	if err != nil {
		if errors.Is(err, raster.ErrUnsupported) {
			return c.degraded(dataDate, ReasonDecoderUnavailable, err)
		}
		return c.degraded(dataDate, ReasonMalformedRaster, err)
	}

	snap, ok := Reduce(img)
	if !ok {
		return c.degraded(dataDate, ReasonEmptyRaster, errors.New("no finite ndvi pixels"))
	}
	snap.DataDate = dataDate
	slog.Debug("Satellite indices measured", "lat", lat, "lon", lon, "pixels", img.Pixels())
	return Result{Kind: KindOK, Snapshot: snap}
}

func (c *Client) buildRequest(lat, lon float64, radiusM int, start, end time.Time) processRequest {
	var pr processRequest
	pr.Input.Bounds.BBox = BBox(lat, lon, float64(radiusM))
	pr.Input.Bounds.Properties.CRS = crsWGS84

	var src dataSource
	src.Type = dataType
	src.DataFilter.TimeRange.From = start.Format(dateLayout) + "T00:00:00Z"
	src.DataFilter.TimeRange.To = end.Format(dateLayout) + "T23:59:59Z"
	src.DataFilter.MosaickingOrder = mosaickingOrder
	src.DataFilter.MaxCloudCoverage = c.cfg.MaxCloudPct
	pr.Input.Data = []dataSource{src}

	var out outputResponse
	out.Identifier = "default"
	out.Format.Type = "image/tiff"
	pr.Output = processOutput{Width: c.cfg.Width, Height: c.cfg.Height, Responses: []outputResponse{out}}
	pr.Evalscript = evalscript
	return pr
}

// degraded substitutes the fallback NDVI. The substitution is tagged so it is
// never mistaken for a measurement.
func (c *Client) degraded(dataDate, reason string, err error) Result {
	ndvi := c.cfg.FallbackNDVI
	return Result{
		Kind: KindDegraded,
		Snapshot: models.IndicesSnapshot{
			NDVI:           &ndvi,
			DataDate:       dataDate,
			Status:         models.IndicesFallback,
			DegradedReason: reason,
		},
		Reason: reason,
		Err:    err,
	}
}
