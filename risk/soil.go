package risk

import (
	"fmt"

	"fieldfusion/fusion"
	"fieldfusion/models"
)

// SoilTable grades dryness from NDMI and recent rain. Absent rain never
// counts as "low rain".
func SoilTable(th Thresholds) Table {
	return Table{
		missing("no_ndmi", ndmi),
		{
			Name: "dry",
			When: func(fv fusion.FeatureVector) bool {
				return *fv.NDMI < th.NDMIDry && fv.RainMM != nil && *fv.RainMM < th.RainRecentMM
			},
			Then: func(fv fusion.FeatureVector) models.RiskAssessment {
				return verdict(models.RiskHigh, 0.75,
					fmt.Sprintf("low_ndmi=%.2f", *fv.NDMI),
					fmt.Sprintf("low_rain=%.1fmm", *fv.RainMM),
				)
			},
		},
		{
			Name: "moderate",
			When: func(fv fusion.FeatureVector) bool { return *fv.NDMI < th.NDMIModerate },
			Then: func(fv fusion.FeatureVector) models.RiskAssessment {
				return verdict(models.RiskMedium, 0.6, fmt.Sprintf("moderate_ndmi=%.2f", *fv.NDMI))
			},
		},
		{
			Name: "adequate",
			When: always,
			Then: func(fv fusion.FeatureVector) models.RiskAssessment {
				return verdict(models.RiskLow, 0.7, fmt.Sprintf("adequate_ndmi=%.2f", *fv.NDMI))
			},
		},
	}
}
