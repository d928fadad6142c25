package detect

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"govguard/internal/config"
	"govguard/internal/model"
)

// StateLevel flags states with a biometric-update ratio far below the
// cross-state mean and states with erratic growth volatility far above it.
func StateLevel(states []model.StateFeatureRecord, cfg config.DetectionConfig) []model.Anomaly {
	if len(states) < 2 {
		return nil
	}
	ratios := make([]float64, len(states))
	vols := make([]float64, len(states))
	for i, s := range states {
		ratios[i] = s.BioUpdateRatio
		vols[i] = s.GrowthVolatility
	}

	var out []model.Anomaly

	ratioMean := stat.Mean(ratios, nil)
	ratioStd := stat.StdDev(ratios, nil)
	if ratioStd > 0 {
		floor := ratioMean - cfg.BioRatioStdMultiple*ratioStd
		for _, s := range states {
			if s.BioUpdateRatio >= floor {
				continue
			}
			out = append(out, model.Anomaly{
				Type:          model.TypeLowBioUpdates,
				Severity:      model.SeverityHigh,
				Metric:        "biometric_update_ratio",
				Value:         round(s.BioUpdateRatio, 3),
				State:         s.State,
				ExpectedRange: fmt.Sprintf(">= %.3f", floor),
				Explanation:   "Biometric update ratio significantly below average",
			})
		}
	}

	volMean := stat.Mean(vols, nil)
	volStd := stat.StdDev(vols, nil)
	if volStd > 0 {
		ceiling := volMean + cfg.VolatilityStdMultiple*volStd
		for _, s := range states {
			if s.GrowthVolatility <= ceiling {
				continue
			}
			out = append(out, model.Anomaly{
				Type:          model.TypeErraticGrowth,
				Severity:      model.SeverityMedium,
				Metric:        "growth_volatility",
				Value:         round(s.GrowthVolatility, 3),
				State:         s.State,
				ExpectedRange: fmt.Sprintf("<= %.3f", ceiling),
				Explanation:   "Unstable growth pattern suggests infrastructure or data issues",
			})
		}
	}
	return out
}
