package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"govguard/internal/config"
	"govguard/internal/model"
)

const noiseLabel = -1

// ClusterOutliers standardizes {volume, successes, rejections} within each
// region, clusters the z-score vectors with DBSCAN, and flags noise points
// plus members of clusters whose mean absolute z-score is extreme.
func ClusterOutliers(regions model.RegionSeries, cfg config.MLConfig) []model.Anomaly {
	if len(regions) == 0 {
		return nil
	}
	points := zscoreVectors(regions)
	labels := dbscan(points, cfg.ClusterEps, cfg.ClusterMinPoints)

	anomalous := make(map[int]bool)
	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for i, label := range labels {
		if label == noiseLabel {
			continue
		}
		if sums[label] == nil {
			sums[label] = make([]float64, len(points[i]))
		}
		for j, v := range points[i] {
			sums[label][j] += v
		}
		counts[label]++
	}
	for label, sum := range sums {
		peak := 0.0
		for _, v := range sum {
			if m := math.Abs(v / float64(counts[label])); m > peak {
				peak = m
			}
		}
		if peak > cfg.ClusterZLimit {
			anomalous[label] = true
		}
	}

	var out []model.Anomaly
	for i, label := range labels {
		if label != noiseLabel && !anomalous[label] {
			continue
		}
		rec := regions[i]
		explain := fmt.Sprintf("Part of anomalous cluster %d (extreme z-scores)", label)
		if label == noiseLabel {
			explain = "Density noise point (no cluster membership)"
		}
		out = append(out, model.Anomaly{
			Type:        model.TypeClusterOutlier,
			Severity:    model.SeverityMedium,
			Metric:      "update_volume_count",
			Value:       rec.Volume,
			Date:        rec.Date.Format(model.DateLayout),
			Region:      rec.Region,
			ClusterID:   label,
			Explanation: explain,
		})
	}
	return out
}

// zscoreVectors returns one standardized {volume, successes, rejections}
// vector per record; regions with a single observation standardize to zero.
func zscoreVectors(regions model.RegionSeries) [][]float64 {
	type stats struct {
		mean [3]float64
		std  [3]float64
		n    int
	}
	values := func(rec model.RegionRecord) [3]float64 {
		return [3]float64{rec.Volume, rec.Successes, rec.Rejections}
	}

	byRegion := make(map[string][]float64)
	for _, rec := range regions {
		byRegion[rec.Region] = append(byRegion[rec.Region], rec.Volume, rec.Successes, rec.Rejections)
	}
	regionStats := make(map[string]stats)
	for region, flat := range byRegion {
		n := len(flat) / 3
		var st stats
		st.n = n
		for col := 0; col < 3; col++ {
			series := make([]float64, n)
			for i := 0; i < n; i++ {
				series[i] = flat[i*3+col]
			}
			st.mean[col] = stat.Mean(series, nil)
			if n > 1 {
				st.std[col] = stat.StdDev(series, nil)
			}
		}
		regionStats[region] = st
	}

	out := make([][]float64, len(regions))
	for i, rec := range regions {
		st := regionStats[rec.Region]
		v := values(rec)
		row := make([]float64, 3)
		for col := 0; col < 3; col++ {
			if st.n < 2 {
				row[col] = 0
				continue
			}
			row[col] = sanitize((v[col] - st.mean[col]) / (st.std[col] + epsilon))
		}
		out[i] = row
	}
	return out
}

// dbscan labels each point with a 1-based cluster id, or noiseLabel.
func dbscan(points [][]float64, eps float64, minPoints int) []int {
	const unvisited = 0
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}
	cluster := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		neighbors := rangeQuery(points, i, eps)
		if len(neighbors) < minPoints {
			labels[i] = noiseLabel
			continue
		}
		cluster++
		labels[i] = cluster
		for k := 0; k < len(neighbors); k++ {
			j := neighbors[k]
			if labels[j] == noiseLabel {
				labels[j] = cluster
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			next := rangeQuery(points, j, eps)
			if len(next) >= minPoints {
				neighbors = append(neighbors, next...)
			}
		}
	}
	return labels
}

func rangeQuery(points [][]float64, idx int, eps float64) []int {
	var out []int
	for j := range points {
		if euclidean(points[idx], points[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
