// Package risk maps a fusion.FeatureVector to soil, crop and pest risk.
// Each classifier is data: an ordered rule table evaluated first match wins,
// so thresholds can be tuned and tested without touching control flow.
package risk

import (
	"math"

	"fieldfusion/fusion"
	"fieldfusion/models"
)

// InsufficientDataConfidence is reported with every "unknown" verdict.
const InsufficientDataConfidence = 0.3

// Classifier produces one assessment. Implementations keep no state.
type Classifier interface {
	Assess(fv fusion.FeatureVector) models.RiskAssessment
}

// Rule pairs a predicate with the verdict it yields.
type Rule struct {
	Name string
	When func(fv fusion.FeatureVector) bool
	Then func(fv fusion.FeatureVector) models.RiskAssessment
}

// Table is an ordered rule list; the first rule whose When holds decides.
type Table []Rule

func (t Table) Assess(fv fusion.FeatureVector) models.RiskAssessment {
	for _, r := range t {
		if r.When(fv) {
			return r.Then(fv)
		}
	}
	return unknownVerdict("no_rule_matched")
}

// Match returns the name of the deciding rule, or "" when none holds.
func (t Table) Match(fv fusion.FeatureVector) string {
	for _, r := range t {
		if r.When(fv) {
			return r.Name
		}
	}
	return ""
}

func unknownVerdict(driver string) models.RiskAssessment {
	return models.RiskAssessment{
		Level:      models.RiskUnknown,
		Drivers:    []string{driver},
		Confidence: InsufficientDataConfidence,
	}
}

// missing builds the insufficient-data guard that opens every table.
func missing(driver string, field func(fusion.FeatureVector) *float64) Rule {
	return Rule{
		Name: driver,
		When: func(fv fusion.FeatureVector) bool { return field(fv) == nil },
		Then: func(fusion.FeatureVector) models.RiskAssessment { return unknownVerdict(driver) },
	}
}

func always(fusion.FeatureVector) bool { return true }

func verdict(level models.RiskLevel, confidence float64, drivers ...string) models.RiskAssessment {
	return models.RiskAssessment{Level: level, Drivers: drivers, Confidence: confidence}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Field accessors.
func ndvi(fv fusion.FeatureVector) *float64 { return fv.NDVI }
func ndmi(fv fusion.FeatureVector) *float64 { return fv.NDMI }

// Set is the three domain classifiers.
type Set struct {
	Soil Classifier
	Crop Classifier
	Pest Classifier
}

func NewSet(th Thresholds) Set {
	return Set{
		Soil: SoilTable(th),
		Crop: CropTable(th),
		Pest: NewPest(th),
	}
}
