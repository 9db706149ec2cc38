package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fieldfusion/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCommand(t *testing.T) {
	power := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{"parameter":{
			"T2M":{"20250101":21.0},"RH2M":{"20250101":60.0},"PRECTOTCORR":{"20250101":4.0}}}}`))
	}))
	defer power.Close()
	proc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer proc.Close()

	t.Setenv("POWER_BASE_URL", power.URL)
	t.Setenv("SATELLITE_PROCESS_URL", proc.URL)
	t.Setenv("SATELLITE_RATE", "0")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"analyze", "--lat", "18.52", "--lon", "73.86", "--days", "3", "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	require.NoError(t, rootCmd.Execute())

	var resp models.AnalysisResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, models.IndicesFallback, resp.Indices.Status)
	require.NotNil(t, resp.Indices.NDVI)
	assert.Equal(t, 0.4, *resp.Indices.NDVI)
	assert.Equal(t, 3, resp.Weather.WindowDays)
	assert.Equal(t, models.RiskMedium, resp.Crop.Level)
	assert.Equal(t, models.RiskUnknown, resp.Soil.Level)
}
