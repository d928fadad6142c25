package detect

import (
	"fmt"

	"govguard/internal/config"
	"govguard/internal/model"
)

// AuthRetry flags days where high-retry authentication events form an outsized
// share of total attempts, a brute-force signature. Zero-attempt rows carry no
// signal and are skipped.
func AuthRetry(rows []model.AuthRetryRecord, cfg config.DetectionConfig) []model.Anomaly {
	var out []model.Anomaly
	for _, r := range rows {
		if r.TotalAttempts <= 0 {
			continue
		}
		ratio := r.HighRetryEvents / r.TotalAttempts
		if ratio <= cfg.RetryBurstRatio {
			continue
		}
		out = append(out, model.Anomaly{
			Type:        model.TypeAuthBruteForce,
			Severity:    model.SeverityCritical,
			Metric:      "high_retry_rate",
			Value:       round(ratio*100, 1),
			Date:        r.Date.Format(model.DateLayout),
			Region:      r.Region,
			Explanation: fmt.Sprintf("%.0f high-retry events (%.1f%% of traffic)", r.HighRetryEvents, ratio*100),
		})
	}
	return out
}
