package risk

import (
	"fmt"
	"math"

	"fieldfusion/fusion"
	"fieldfusion/models"
)

// Signal adds Weight to the pest score when Present holds.
type Signal struct {
	Name    string
	Weight  float64
	Present func(fv fusion.FeatureVector) bool
	Driver  func(fv fusion.FeatureVector) string
}

// Band maps a score at or above Min to Level. Bands are ordered high to low.
type Band struct {
	Min   float64
	Level models.RiskLevel
}

// Pest is an additive score over independent signals, banded into a level.
type Pest struct {
	Base    float64
	Cap     float64
	Signals []Signal
	Bands   []Band
}

func NewPest(th Thresholds) *Pest {
	return &Pest{
		Base: 0.2,
		Cap:  0.9,
		Signals: []Signal{
			{
				Name:    "high_humidity",
				Weight:  0.3,
				Present: func(fv fusion.FeatureVector) bool { return fv.RH2MPct != nil && *fv.RH2MPct > th.HumidityHighPct },
				Driver:  func(fv fusion.FeatureVector) string { return fmt.Sprintf("high_humidity=%.0f%%", *fv.RH2MPct) },
			},
			{
				Name:   "favorable_temp",
				Weight: 0.2,
				Present: func(fv fusion.FeatureVector) bool {
					return fv.T2MC != nil && *fv.T2MC >= th.TempFavorableMin && *fv.T2MC <= th.TempFavorableMax
				},
				Driver: func(fv fusion.FeatureVector) string { return fmt.Sprintf("favorable_temp=%.1fC", *fv.T2MC) },
			},
			{
				Name:    "image_signals",
				Weight:  0.2,
				Present: func(fv fusion.FeatureVector) bool { return fv.ImageBytes != nil && *fv.ImageBytes > 0 },
				Driver:  func(fusion.FeatureVector) string { return "image_signals_present" },
			},
		},
		Bands: []Band{
			{Min: 0.8, Level: models.RiskHigh},
			{Min: 0.6, Level: models.RiskMedium},
			{Min: math.Inf(-1), Level: models.RiskLow},
		},
	}
}

// Score returns the rounded score and the drivers that contributed.
func (p *Pest) Score(fv fusion.FeatureVector) (float64, []string) {
	score := p.Base
	var drivers []string
	for _, s := range p.Signals {
		if s.Present(fv) {
			score += s.Weight
			drivers = append(drivers, s.Driver(fv))
		}
	}
	return round2(score), drivers
}

func (p *Pest) Assess(fv fusion.FeatureVector) models.RiskAssessment {
	score, drivers := p.Score(fv)
	if len(drivers) == 0 {
		drivers = []string{"insufficient_signals"}
	}
	level := models.RiskLow
	for _, b := range p.Bands {
		if score >= b.Min {
			level = b.Level
			break
		}
	}
	return models.RiskAssessment{
		Level:      level,
		Drivers:    drivers,
		Confidence: math.Min(p.Cap, score),
	}
}
