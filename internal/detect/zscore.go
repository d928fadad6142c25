package detect

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"govguard/internal/config"
	"govguard/internal/model"
)

// ZScore flags periods whose value deviates from the metric's population mean
// by more than the configured number of standard deviations. Constant series
// (std == 0) are skipped, not failed.
func ZScore(series []model.MetricSeries, cfg config.DetectionConfig) []model.Anomaly {
	var out []model.Anomaly
	for _, s := range series {
		vals := seriesValues(s)
		if len(vals) == 0 {
			continue
		}
		mean := stat.Mean(vals, nil)
		std := stat.PopStdDev(vals, nil)
		if std == 0 {
			continue
		}
		for i, v := range vals {
			z := (v - mean) / std
			if abs(z) <= cfg.ZScoreThreshold {
				continue
			}
			typ := model.TypeSpike
			if z < 0 {
				typ = model.TypeDrop
			}
			sev := model.SeverityHigh
			if abs(z) > cfg.ZScoreCriticalThreshold {
				sev = model.SeverityCritical
			}
			period := s.Points[i].Period
			out = append(out, model.Anomaly{
				Type:        typ,
				Severity:    sev,
				Metric:      s.Metric,
				Value:       v,
				Period:      period,
				ZScore:      round(z, 2),
				Deviation:   round(abs(z)*std, 0),
				Explanation: fmt.Sprintf("Statistical deviation (Z=%.1f) detected for %s in %s", z, s.Metric, period),
			})
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
