// Package pipeline runs one FieldFusion analysis: fetch weather and satellite
// indices, read the optional photo, fuse, classify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"fieldfusion/fusion"
	"fieldfusion/metrics"
	"fieldfusion/models"
	"fieldfusion/risk"
	"fieldfusion/satellite"

	"golang.org/x/sync/errgroup"
)

// ErrUpstream wraps a fatal provider failure (the weather provider, today).
var ErrUpstream = errors.New("upstream provider failed")

type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64, days int) (*models.WeatherSummary, error)
}

type IndexSource interface {
	Fetch(ctx context.Context, lat, lon float64, radiusM int) satellite.Result
}

// Analysis is the assembled response plus the image signal it was built from.
type Analysis struct {
	Response *models.AnalysisResponse
	Image    *fusion.ImageSignal
}

type Analyzer struct {
	weather    WeatherSource
	satellite  IndexSource
	risk       risk.Set
	metrics    *metrics.Metrics
	log        *slog.Logger
	imageLimit int64
}

type Option func(*Analyzer)

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

func WithThresholds(th risk.Thresholds) Option {
	return func(a *Analyzer) { a.risk = risk.NewSet(th) }
}

func WithImageLimit(n int64) Option {
	return func(a *Analyzer) { a.imageLimit = n }
}

func New(w WeatherSource, s IndexSource, opts ...Option) *Analyzer {
	a := &Analyzer{
		weather:    w,
		satellite:  s,
		risk:       risk.NewSet(risk.DefaultThresholds()),
		log:        slog.Default(),
		imageLimit: fusion.DefaultImageLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze validates req, runs the three independent reads concurrently and
// classifies the fused features. image may be nil.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalysisRequest, image io.Reader) (*Analysis, error) {
	if err := req.Validate(); err != nil {
		a.metrics.Analysis(metrics.OutcomeInvalid)
		return nil, err
	}

	var (
		wx  *models.WeatherSummary
		sat satellite.Result
		img *fusion.ImageSignal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		s, err := a.weather.Fetch(gctx, req.Lat, req.Lon, req.IncludeForecastDays)
		a.metrics.ObserveUpstream(metrics.ProviderWeather, time.Since(start))
		if err != nil {
			return fmt.Errorf("%w: weather: %w", ErrUpstream, err)
		}
		wx = s
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		sat = a.satellite.Fetch(gctx, req.Lat, req.Lon, req.AOIRadiusM)
		a.metrics.ObserveUpstream(metrics.ProviderSatellite, time.Since(start))
		a.metrics.SatelliteResult(sat.Kind.String())
		switch sat.Kind {
		case satellite.KindFatal:
			return fmt.Errorf("satellite: %w", sat.Err)
		case satellite.KindDegraded:
			a.log.Warn("satellite indices degraded, using fallback",
				"reason", sat.Reason, "err", sat.Err, "lat", req.Lat, "lon", req.Lon)
		}
		return nil
	})
	g.Go(func() error {
		s, err := fusion.ReadImage(image, a.imageLimit)
		if err != nil {
			return err
		}
		img = s
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrUpstream) {
			a.metrics.Analysis(metrics.OutcomeUpstream)
		} else {
			a.metrics.Analysis(metrics.OutcomeAborted)
		}
		return nil, err
	}

	fv := fusion.Build(sat.Snapshot, *wx, img)
	resp := &models.AnalysisResponse{
		Indices: sat.Snapshot,
		Weather: *wx,
		Soil:    a.risk.Soil.Assess(fv),
		Crop:    a.risk.Crop.Assess(fv),
		Pest:    a.risk.Pest.Assess(fv),
	}
	a.metrics.Analysis(metrics.OutcomeOK)
	return &Analysis{Response: resp, Image: img}, nil
}
