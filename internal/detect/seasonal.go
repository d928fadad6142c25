package detect

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"govguard/internal/config"
	"govguard/internal/model"
)

// SeasonalBounds flags daily region volumes outside the region's own
// historical band (mean plus/minus the configured multiple of the sample
// standard deviation). Regions with fewer than two observations have no
// defined band and are skipped.
func SeasonalBounds(regions model.RegionSeries, cfg config.DetectionConfig) []model.Anomaly {
	if len(regions) == 0 {
		return nil
	}
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
		if len(recs) < 2 {
			continue
		}
		vols := make([]float64, len(recs))
		for i, rec := range recs {
			vols[i] = rec.Volume
		}
		mean := stat.Mean(vols, nil)
		std := stat.StdDev(vols, nil)
		if std == 0 {
			continue
		}
		upper := mean + cfg.SeasonalStdMultiple*std
		lower := mean - cfg.SeasonalStdMultiple*std
		band := fmt.Sprintf("%d-%d", int(lower), int(upper))
		for _, rec := range recs {
			if rec.Volume <= upper && rec.Volume >= lower {
				continue
			}
			out = append(out, model.Anomaly{
				Type:          model.TypeSeasonalDeviation,
				Severity:      model.SeverityMedium,
				Metric:        "update_volume_count",
				Value:         rec.Volume,
				Date:          rec.Date.Format(model.DateLayout),
				Region:        rec.Region,
				ExpectedRange: band,
				Explanation:   fmt.Sprintf("Volume %.0f outside seasonal bounds (%d-%d)", rec.Volume, int(lower), int(upper)),
			})
		}
	}
	return out
}
