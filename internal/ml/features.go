// Package ml is the feature-engineered detector bank: isolation-forest
// outlier scoring, density clustering over standardized metrics, and
// penalized change-point segmentation. All randomness is seeded from
// configuration so runs are reproducible.
package ml

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"govguard/internal/model"
)

const epsilon = 1e-6

// FeatureSet pairs the engineered feature matrix with the source rows it was
// built from; row i of the matrix describes Records[i].
type FeatureSet struct {
	Records model.RegionSeries
	Matrix  *mat.Dense
}

var featureColumns = []string{
	"update_volume_count",
	"successful_updates",
	"rejected_updates",
	"day_of_week",
	"day_of_month",
	"month",
	"region_encoded",
	"rejection_rate",
	"success_rate",
}

// Features engineers the ML feature matrix from a region series. Regions are
// ordinal-encoded in first-seen order; non-finite values are zeroed so no
// detector ever sees NaN or Inf.
func Features(regions model.RegionSeries) *FeatureSet {
	if len(regions) == 0 {
		return &FeatureSet{}
	}
	regionCodes := make(map[string]int)
	m := mat.NewDense(len(regions), len(featureColumns), nil)
	for i, rec := range regions {
		code, ok := regionCodes[rec.Region]
		if !ok {
			code = len(regionCodes)
			regionCodes[rec.Region] = code
		}
		row := []float64{
			rec.Volume,
			rec.Successes,
			rec.Rejections,
			float64(int(rec.Date.Weekday())),
			float64(rec.Date.Day()),
			float64(int(rec.Date.Month())),
			float64(code),
			rec.Rejections / (rec.Volume + epsilon),
			rec.Successes / (rec.Volume + epsilon),
		}
		for j, v := range row {
			m.Set(i, j, sanitize(v))
		}
	}
	return &FeatureSet{Records: regions, Matrix: m}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func matrixRows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		mat.Row(row, i, m)
		out[i] = row
	}
	return out
}
