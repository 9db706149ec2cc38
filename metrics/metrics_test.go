package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Analysis(OutcomeOK)
	m.Analysis(OutcomeOK)
	m.Analysis(OutcomeUpstream)
	m.SatelliteResult("degraded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analyses.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues(OutcomeUpstream)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.satellite.WithLabelValues("degraded")))
}

func TestHandlerExposesFamilies(t *testing.T) {
	m := New()
	m.Analysis(OutcomeOK)
	m.ObserveUpstream(ProviderWeather, 150*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `fieldfusion_analyses_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), `fieldfusion_upstream_duration_seconds_count{provider="weather"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Analysis(OutcomeOK)
		m.SatelliteResult("ok")
		m.ObserveUpstream(ProviderSatellite, time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
