package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"govguard/internal/config"
	"govguard/internal/model"
)

// IsolationForest is a seeded ensemble of random isolation trees. Scores are
// in (0, 1); higher means the point isolates earlier and is more anomalous.
type IsolationForest struct {
	trees      []*isoNode
	sampleSize int
	rng        *rand.Rand
}

type isoNode struct {
	left, right *isoNode
	splitCol    int
	splitVal    float64
	size        int
}

func NewIsolationForest(trees, sampleSize int, seed int64) *IsolationForest {
	if trees <= 0 {
		trees = 100
	}
	if sampleSize <= 0 {
		sampleSize = 256
	}
	return &IsolationForest{
		trees:      make([]*isoNode, 0, trees),
		sampleSize: sampleSize,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (f *IsolationForest) Fit(rows [][]float64) {
	f.trees = f.trees[:cap(f.trees)]
	sample := f.sampleSize
	if sample > len(rows) {
		sample = len(rows)
	}
	f.sampleSize = sample
	height := int(math.Ceil(math.Log2(float64(maxInt(sample, 2)))))
	for i := range f.trees {
		idx := f.rng.Perm(len(rows))[:sample]
		sub := make([][]float64, sample)
		for j, k := range idx {
			sub[j] = rows[k]
		}
		f.trees[i] = f.grow(sub, 0, height)
	}
}

func (f *IsolationForest) grow(rows [][]float64, depth, limit int) *isoNode {
	n := len(rows)
	if n <= 1 || depth >= limit {
		return &isoNode{size: n}
	}
	cols := len(rows[0])
	// Try a few columns before accepting the subsample as unsplittable.
	for attempt := 0; attempt < cols; attempt++ {
		col := f.rng.Intn(cols)
		lo, hi := rows[0][col], rows[0][col]
		for _, r := range rows {
			if r[col] < lo {
				lo = r[col]
			}
			if r[col] > hi {
				hi = r[col]
			}
		}
		if hi <= lo {
			continue
		}
		split := lo + f.rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, r := range rows {
			if r[col] < split {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		return &isoNode{
			splitCol: col,
			splitVal: split,
			left:     f.grow(left, depth+1, limit),
			right:    f.grow(right, depth+1, limit),
		}
	}
	return &isoNode{size: n}
}

func (f *IsolationForest) pathLength(row []float64) float64 {
	var total float64
	for _, tree := range f.trees {
		depth := 0.0
		node := tree
		for node.left != nil {
			if row[node.splitCol] < node.splitVal {
				node = node.left
			} else {
				node = node.right
			}
			depth++
		}
		total += depth + avgPathLength(node.size)
	}
	return total / float64(len(f.trees))
}

// Score returns anomaly scores for each row: 2^(-E(h)/c(n)). With fewer than
// two fitted samples no point can isolate, so every row gets the neutral 0.5.
func (f *IsolationForest) Score(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	norm := avgPathLength(f.sampleSize)
	if norm <= 0 {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, row := range rows {
		out[i] = math.Pow(2, -f.pathLength(row)/norm)
	}
	return out
}

// avgPathLength is the expected unsuccessful-search depth of a BST with n
// nodes, the iForest normalization constant.
func avgPathLength(n int) float64 {
	switch {
	case n > 2:
		fn := float64(n)
		return 2*(math.Log(fn-1)+0.5772156649) - 2*(fn-1)/fn
	case n == 2:
		return 1
	default:
		return 0
	}
}

// IsolationOutliers trains a seeded isolation forest over the engineered
// features and flags the rows scoring above the contamination quantile.
// Requires at least one row of region history; returns empty on absence.
func IsolationOutliers(regions model.RegionSeries, cfg config.MLConfig) []model.Anomaly {
	fs := Features(regions)
	rows := matrixRows(fs.Matrix)
	if len(rows) == 0 {
		return nil
	}
	forest := NewIsolationForest(cfg.ForestTrees, cfg.ForestSampleSize, cfg.Seed)
	forest.Fit(rows)
	scores := forest.Score(rows)

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	threshold := stat.Quantile(1-cfg.Contamination, stat.Empirical, sorted, nil)

	var out []model.Anomaly
	for i, s := range scores {
		if s <= threshold {
			continue
		}
		rec := fs.Records[i]
		out = append(out, model.Anomaly{
			Type:        model.TypeIsolationOutlier,
			Severity:    model.SeverityMedium,
			Metric:      "update_volume_count",
			Value:       rec.Volume,
			Date:        rec.Date.Format(model.DateLayout),
			Region:      rec.Region,
			Score:       round3(s),
			Explanation: fmt.Sprintf("ML-detected outlier (score: %.3f)", s),
		})
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
