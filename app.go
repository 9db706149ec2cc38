package main

import (
	"context"
	"fmt"
	"log/slog"

	"fieldfusion/clock"
	"fieldfusion/mailer"
	"fieldfusion/metrics"
	"fieldfusion/pipeline"
	"fieldfusion/satellite"
	"fieldfusion/store"
	"fieldfusion/weather"
)

type App struct {
	cfg      Config
	store    store.Store
	mailer   mailer.Mailer
	analyzer *pipeline.Analyzer
	metrics  *metrics.Metrics
	clock    clock.Clock
	log      *slog.Logger
}

func newApp(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	var st store.Store
	if cfg.MongoURI == "" {
		log.Warn("MONGO_URI not set, using in-memory store")
		st = store.NewMemory()
	} else {
		m, err := store.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		st = m
	}

	var ml mailer.Mailer
	if cfg.SMTP.Host == "" {
		ml = mailer.NewLog(log)
	} else {
		s, err := mailer.NewSMTP(cfg.SMTP)
		if err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("smtp: %w", err)
		}
		ml = s
	}

	m := metrics.New()
	clk := clock.RealClock{}
	return &App{
		cfg:      cfg,
		store:    st,
		mailer:   ml,
		analyzer: newAnalyzer(cfg, clk, m, log),
		metrics:  m,
		clock:    clk,
		log:      log,
	}, nil
}

// newAnalyzer is shared by the server and the analyze command.
func newAnalyzer(cfg Config, clk clock.Clock, m *metrics.Metrics, log *slog.Logger) *pipeline.Analyzer {
	return pipeline.New(
		weather.NewClient(cfg.Weather, weather.WithClock(clk)),
		satellite.NewClient(cfg.Satellite, satellite.WithClock(clk)),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(log),
		pipeline.WithImageLimit(cfg.ImageMaxBytes),
	)
}

func (a *App) close(ctx context.Context) { _ = a.store.Close(ctx) }
