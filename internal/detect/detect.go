// Package detect is the statistical detector bank. Each detector is a pure
// function over an immutable input table; detectors share no state and
// degrade to an empty result when their input dataset is absent.
package detect

import (
	"math"

	"govguard/internal/model"
)

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func seriesValues(s model.MetricSeries) []float64 {
	vals := make([]float64, len(s.Points))
	for i, p := range s.Points {
		v := p.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		vals[i] = v
	}
	return vals
}

// FlagKey identifies a (period, metric) pair already claimed by a detector,
// used to avoid double counting within the bank.
func FlagKey(period, metric string) string {
	return period + "|" + metric
}

// FlaggedSet collects the (period, metric) pairs a detector has flagged.
func FlaggedSet(anomalies []model.Anomaly) map[string]struct{} {
	out := make(map[string]struct{}, len(anomalies))
	for _, a := range anomalies {
		out[FlagKey(a.Period, a.Metric)] = struct{}{}
	}
	return out
}
