package main

import (
	"errors"
	"strings"

	"fieldfusion/models"
)

// Request/response DTOs. Keep them minimal and explicit.

type registerReq struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Mobile   string      `json:"mobile"`
	Password string      `json:"password"`
	Role     models.Role `json:"role,omitempty"` // defaults to farmer
}

func (r registerReq) validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return errors.New("name is required")
	case !strings.Contains(r.Email, "@"):
		return errors.New("a valid email is required")
	case strings.TrimSpace(r.Mobile) == "":
		return errors.New("mobile is required")
	case len(r.Password) < 8:
		return errors.New("password must be at least 8 characters")
	case r.Role != "" && !r.Role.Valid():
		return errors.New("role must be farmer or researcher")
	}
	return nil
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string `json:"token"`
}

// analyzeReq keeps the optional ints as pointers so an omitted field takes its
// default while an explicit 0 is still rejected.
type analyzeReq struct {
	Lat                 *float64 `json:"lat"`
	Lon                 *float64 `json:"lon"`
	AOIRadiusM          *int     `json:"aoi_radius_m,omitempty"`
	IncludeForecastDays *int     `json:"include_forecast_days,omitempty"`
	Notes               string   `json:"notes,omitempty"`
}

func (r analyzeReq) toModel() (models.AnalysisRequest, error) {
	if r.Lat == nil || r.Lon == nil {
		return models.AnalysisRequest{}, &models.ValidationError{Field: "lat/lon", Message: "are required"}
	}
	out := models.AnalysisRequest{
		Lat:                 *r.Lat,
		Lon:                 *r.Lon,
		AOIRadiusM:          models.DefaultAOIRadiusM,
		IncludeForecastDays: models.DefaultWindowDays,
		Notes:               strings.TrimSpace(r.Notes),
	}
	if r.AOIRadiusM != nil {
		out.AOIRadiusM = *r.AOIRadiusM
	}
	if r.IncludeForecastDays != nil {
		out.IncludeForecastDays = *r.IncludeForecastDays
	}
	return out, nil
}

type healthResp struct {
	Status string `json:"status"`
}
