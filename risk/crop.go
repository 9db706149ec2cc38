package risk

import (
	"fmt"

	"fieldfusion/fusion"
	"fieldfusion/models"
)

// CropTable grades vegetation stress from NDVI alone.
func CropTable(th Thresholds) Table {
	return Table{
		missing("no_ndvi", ndvi),
		{
			Name: "stressed",
			When: func(fv fusion.FeatureVector) bool { return *fv.NDVI < th.NDVIStressLow },
			Then: func(fv fusion.FeatureVector) models.RiskAssessment {
				return verdict(models.RiskHigh, 0.8, fmt.Sprintf("low_ndvi=%.2f<%g", *fv.NDVI, th.NDVIStressLow))
			},
		},
		{
			Name: "moderate",
			When: func(fv fusion.FeatureVector) bool { return *fv.NDVI < th.NDVIStressHigh },
			Then: func(fv fusion.FeatureVector) models.RiskAssessment {
				return verdict(models.RiskMedium, 0.6, fmt.Sprintf("moderate_ndvi=%.2f", *fv.NDVI))
			},
		},
		{
			Name: "healthy",
			When: always,
			Then: func(fv fusion.FeatureVector) models.RiskAssessment {
				return verdict(models.RiskLow, 0.7, fmt.Sprintf("healthy_ndvi=%.2f", *fv.NDVI))
			},
		},
	}
}
