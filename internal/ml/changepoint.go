package ml

import (
	"fmt"
	"math"
	"sort"

	"govguard/internal/config"
	"govguard/internal/model"
)

// ChangePoints runs penalized segmentation over each region's volume series
// and reports every detected regime boundary as a high-severity anomaly.
// Regions with too little history are skipped.
func ChangePoints(regions model.RegionSeries, cfg config.MLConfig) []model.Anomaly {
	byRegion := make(map[string][]model.RegionRecord)
	var order []string
	for _, rec := range regions {
		if _, seen := byRegion[rec.Region]; !seen {
			order = append(order, rec.Region)
		}
		byRegion[rec.Region] = append(byRegion[rec.Region], rec)
	}

	var out []model.Anomaly
	for _, region := range order {
		recs := byRegion[region]
		if len(recs) < cfg.ChangeMinHistory {
			continue
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
		signal := make([]float64, len(recs))
		for i, rec := range recs {
			signal[i] = sanitize(rec.Volume)
		}
		for _, idx := range Segment(signal, cfg.ChangePenalty, cfg.ChangeMinSegment) {
			rec := recs[idx]
			out = append(out, model.Anomaly{
				Type:        model.TypeRegimeChange,
				Severity:    model.SeverityHigh,
				Metric:      "update_volume_count",
				Value:       rec.Volume,
				Date:        rec.Date.Format(model.DateLayout),
				Region:      region,
				Explanation: fmt.Sprintf("Structural break detected at index %d (regime shift)", idx),
			})
		}
	}
	return out
}

// Segment finds optimal change-point indices for a mean-shift model with an
// L2 segment cost and a per-breakpoint penalty (exact dynamic program; the
// series ends are not reported as breaks).
func Segment(signal []float64, penalty float64, minSize int) []int {
	n := len(signal)
	if minSize < 1 || n < 2*minSize {
		return nil
	}
	// Prefix sums make the segment cost O(1):
	// cost[a,b) = sum(x^2) - (sum x)^2 / (b-a).
	sum := make([]float64, n+1)
	sumSq := make([]float64, n+1)
	for i, v := range signal {
		sum[i+1] = sum[i] + v
		sumSq[i+1] = sumSq[i] + v*v
	}
	cost := func(a, b int) float64 {
		width := float64(b - a)
		s := sum[b] - sum[a]
		return (sumSq[b] - sumSq[a]) - s*s/width
	}

	best := make([]float64, n+1)
	prev := make([]int, n+1)
	for t := 1; t <= n; t++ {
		best[t] = math.Inf(1)
	}
	best[0] = -penalty
	for t := minSize; t <= n; t++ {
		for s := 0; s+minSize <= t; s++ {
			if math.IsInf(best[s], 1) {
				continue
			}
			if v := best[s] + cost(s, t) + penalty; v < best[t] {
				best[t] = v
				prev[t] = s
			}
		}
	}
	if math.IsInf(best[n], 1) {
		return nil
	}

	var breaks []int
	for t := n; t > 0; t = prev[t] {
		if p := prev[t]; p > 0 {
			breaks = append(breaks, p)
		}
	}
	sort.Ints(breaks)
	return breaks
}
