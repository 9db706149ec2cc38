package weather

import (
	"math"

	"fieldfusion/models"
)

// Plausibility bands; values outside are dropped before aggregation.
// They also drop the provider's -999 fill value.
const (
	minTempC     = -60.0
	maxTempC     = 60.0
	minHumidity  = 0.0
	maxHumidity  = 100.0
	soilRainNorm = 50.0 // mm of rain that saturates the soil-moisture proxy
	vpdTempNorm  = 40.0
)

// Series holds the raw daily samples, in date order.
type Series struct {
	TempC       []float64
	HumidityPct []float64
	PrecipMM    []float64
}

// Summarize reduces s into a WeatherSummary for a window of days.
func Summarize(s Series, days int) models.WeatherSummary {
	t := mean(filter(s.TempC, func(v float64) bool { return v >= minTempC && v <= maxTempC }))
	rh := mean(filter(s.HumidityPct, func(v float64) bool { return v >= minHumidity && v <= maxHumidity }))
	rain := sum(filter(s.PrecipMM, func(v float64) bool { return v >= 0 }))

	out := models.WeatherSummary{
		T2MC:       t,
		RH2MPct:    rh,
		RainMM:     rain,
		WindowDays: days,
	}
	if rain != nil {
		v := math.Min(1, *rain/soilRainNorm)
		out.SoilMoistureProxy = &v
	}
	if t != nil && rh != nil {
		v := clamp01((1 - *rh/100) * math.Max(0, *t) / vpdTempNorm)
		out.VPDProxy = &v
	}
	return out
}

func filter(vals []float64, keep func(float64) bool) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || !keep(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func mean(vals []float64) *float64 {
	s := sum(vals)
	if s == nil {
		return nil
	}
	m := *s / float64(len(vals))
	return &m
}

func sum(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	var s float64
	for _, v := range vals {
		s += v
	}
	return &s
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
