package detect

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"govguard/internal/config"
	"govguard/internal/model"
)

// RollingDeviation flags values that drift from their trailing-window mean.
// Pairs already flagged by the z-score detector are skipped so the bank does
// not double count the same (period, metric).
func RollingDeviation(series []model.MetricSeries, cfg config.DetectionConfig, flagged map[string]struct{}) []model.Anomaly {
	var out []model.Anomaly
	for _, s := range series {
		vals := seriesValues(s)
		for i := range vals {
			start := i - cfg.RollingWindow + 1
			if start < 0 {
				start = 0
			}
			window := vals[start : i+1]
			mean := stat.Mean(window, nil)
			std := 1.0
			if len(window) > 1 {
				if sd := stat.StdDev(window, nil); sd > 0 {
					std = sd
				}
			}
			dev := (vals[i] - mean) / std
			if abs(dev) <= cfg.RollingThreshold {
				continue
			}
			period := s.Points[i].Period
			if _, dup := flagged[FlagKey(period, s.Metric)]; dup {
				continue
			}
			typ := model.TypeTrendBreak
			if dev < 0 {
				typ = model.TypeDrop
			}
			out = append(out, model.Anomaly{
				Type:        typ,
				Severity:    model.SeverityMedium,
				Metric:      s.Metric,
				Value:       vals[i],
				Period:      period,
				Deviation:   round(dev, 2),
				Explanation: fmt.Sprintf("Value deviates %.1fx from rolling average", abs(dev)),
			})
		}
	}
	return out
}
