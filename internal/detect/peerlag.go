package detect

import (
	"fmt"

	"govguard/internal/model"
)

// PeerLag surfaces states already flagged by the benchmark table as lagging
// their demographic-cohort median on biometric saturation.
func PeerLag(rows []model.PeerBenchmarkRecord) []model.Anomaly {
	var out []model.Anomaly
	for _, r := range rows {
		if !r.PeerLagFlag {
			continue
		}
		out = append(out, model.Anomaly{
			Type:          model.TypePeerGap,
			Severity:      model.SeverityHigh,
			Metric:        "biometric_saturation",
			Value:         round(r.BioUpdateRatio*100, 1),
			State:         r.State,
			ExpectedRange: fmt.Sprintf("~%.1f%%", r.CohortMedianBioRatio*100),
			Explanation: fmt.Sprintf("Region underperforming demographic cohort (peer group %s) by %.1f%%",
				r.PeerGroupID, r.BioPerformanceGapPct),
		})
	}
	return out
}
