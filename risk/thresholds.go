package risk

// Thresholds are the tunable cut points of the rule tables.
type Thresholds struct {
	NDVIStressLow    float64 // below: high crop risk
	NDVIStressHigh   float64 // below: medium crop risk
	NDMIDry          float64
	NDMIModerate     float64
	RainRecentMM     float64
	HumidityHighPct  float64
	TempFavorableMin float64
	TempFavorableMax float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		NDVIStressLow:    0.3,
		NDVIStressHigh:   0.6,
		NDMIDry:          0.1,
		NDMIModerate:     0.25,
		RainRecentMM:     10,
		HumidityHighPct:  70,
		TempFavorableMin: 20,
		TempFavorableMax: 32,
	}
}
