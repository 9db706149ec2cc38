package models

import (
	"fmt"
	"math"
)

const (
	DefaultAOIRadiusM = 200
	DefaultWindowDays = 7
	MaxAOIRadiusM     = 10000
	MaxWindowDays     = 366
)

// AnalysisRequest is one point analysis. Built per request, never mutated.
type AnalysisRequest struct {
	Lat                 float64 `bson:"lat"                 json:"lat"`
	Lon                 float64 `bson:"lon"                 json:"lon"`
	AOIRadiusM          int     `bson:"aoiRadiusM"          json:"aoi_radius_m"`
	IncludeForecastDays int     `bson:"includeForecastDays" json:"include_forecast_days"`
	Notes               string  `bson:"notes,omitempty"     json:"notes,omitempty"`
}

// ValidationError rejects a request before any upstream call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks coordinate ranges and the AOI/window bounds.
func (r AnalysisRequest) Validate() error {
	if math.IsNaN(r.Lat) || r.Lat < -90 || r.Lat > 90 {
		return &ValidationError{Field: "lat", Message: "must be within [-90, 90]"}
	}
	if math.IsNaN(r.Lon) || r.Lon < -180 || r.Lon > 180 {
		return &ValidationError{Field: "lon", Message: "must be within [-180, 180]"}
	}
	if r.AOIRadiusM < 1 || r.AOIRadiusM > MaxAOIRadiusM {
		return &ValidationError{Field: "aoi_radius_m", Message: fmt.Sprintf("must be within [1, %d]", MaxAOIRadiusM)}
	}
	if r.IncludeForecastDays < 1 || r.IncludeForecastDays > MaxWindowDays {
		return &ValidationError{Field: "include_forecast_days", Message: fmt.Sprintf("must be within [1, %d]", MaxWindowDays)}
	}
	return nil
}

// IndicesStatus tells a measured snapshot apart from a substituted one.
type IndicesStatus string

const (
	IndicesMeasured IndicesStatus = "measured"
	IndicesFallback IndicesStatus = "fallback"
)

// IndicesSnapshot holds satellite-derived indices for the AOI.
// Nil fields mean "could not be determined".
type IndicesSnapshot struct {
	NDVI           *float64      `bson:"ndvi"                     json:"ndvi"`
	GNDVI          *float64      `bson:"gndvi"                    json:"gndvi"`
	NDWI           *float64      `bson:"ndwi"                     json:"ndwi"`
	NDMI           *float64      `bson:"ndmi"                     json:"ndmi"`
	SAVI           *float64      `bson:"savi"                     json:"savi"`
	DataDate       string        `bson:"dataDate"                 json:"data_date"` // YYYY-MM-DD, end of lookback
	CloudPercent   *float64      `bson:"cloudPercent"             json:"cloud_percent"`
	Status         IndicesStatus `bson:"status"                   json:"status"`
	DegradedReason string        `bson:"degradedReason,omitempty" json:"degraded_reason,omitempty"`
}

// WeatherSummary is the trailing-window reduction of daily weather.
type WeatherSummary struct {
	T2MC              *float64 `bson:"t2mC"              json:"t2m_c"`    // mean air temperature, °C
	RH2MPct           *float64 `bson:"rh2mPct"           json:"rh2m_pct"` // mean relative humidity, %
	RainMM            *float64 `bson:"rainMm"            json:"rain_mm"`  // summed precipitation
	SoilMoistureProxy *float64 `bson:"soilMoistureProxy" json:"soil_moisture_proxy"`
	VPDProxy          *float64 `bson:"vpdProxy"          json:"vpd_proxy"`
	WindowDays        int      `bson:"windowDays"        json:"window_days"`
}

type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// RiskAssessment is one classifier's verdict.
type RiskAssessment struct {
	Level      RiskLevel `bson:"level"      json:"level"`
	Drivers    []string  `bson:"drivers"    json:"drivers"`
	Confidence float64   `bson:"confidence" json:"confidence"`
}

// AnalysisResponse is the full response schema; it is always complete.
type AnalysisResponse struct {
	Indices  IndicesSnapshot `json:"indices"`
	Weather  WeatherSummary  `json:"weather"`
	Soil     RiskAssessment  `json:"soil"`
	Crop     RiskAssessment  `json:"crop"`
	Pest     RiskAssessment  `json:"pest"`
	ReportID string          `json:"report_id,omitempty"`
}
