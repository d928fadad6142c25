package detect

import (
	"fmt"

	"govguard/internal/config"
	"govguard/internal/model"
)

// CenterOps flags operational fraud signals at enrolment centers: processing
// faster than plausible human operation, and biometric error rates above the
// device-fault threshold.
func CenterOps(centers []model.CenterRecord, cfg config.DetectionConfig) []model.Anomaly {
	var out []model.Anomaly
	for _, c := range centers {
		if c.AvgProcessingTimeMin < cfg.MinProcessingTimeMin {
			out = append(out, model.Anomaly{
				Type:        model.TypeImpossibleSpeed,
				Severity:    model.SeverityCritical,
				Metric:      "avg_processing_time_min",
				Value:       round(c.AvgProcessingTimeMin, 1),
				CenterID:    c.CenterID,
				Region:      c.Region,
				Explanation: fmt.Sprintf("Avg transaction time %.1fm is suspiciously fast (norm: ~12m)", c.AvgProcessingTimeMin),
			})
		}
		if c.BioErrorRatePct > cfg.MaxBioErrorRatePct {
			out = append(out, model.Anomaly{
				Type:        model.TypeHighBioFailure,
				Severity:    model.SeverityHigh,
				Metric:      "biometric_error_rate_pct",
				Value:       round(c.BioErrorRatePct, 1),
				CenterID:    c.CenterID,
				Region:      c.Region,
				Explanation: fmt.Sprintf("Biometric error rate of %.1f%% exceeds threshold (%.1f%%)", c.BioErrorRatePct, cfg.MaxBioErrorRatePct),
			})
		}
	}
	return out
}
