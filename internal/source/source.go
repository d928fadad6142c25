// Package source loads the engine's input tables. Tables arrive as clean,
// pre-aggregated CSV snapshots plus an optional Kafka feed of region-daily
// records; loading is fail-fast with no retries. A missing optional table is
// not an error; a missing required table fails the run before detection.
package source

import (
	"fmt"
	"log/slog"
	"sort"

	"govguard/internal/config"
	"govguard/internal/model"
)

// Snapshot is the immutable view of all input tables handed to one run.
type Snapshot struct {
	Monthly    []model.MetricSeries
	States     []model.StateFeatureRecord
	Regions    model.RegionSeries
	Centers    []model.CenterRecord
	Retries    []model.AuthRetryRecord
	Benchmarks []model.PeerBenchmarkRecord
}

// Load reads every configured table. The monthly aggregate and state feature
// tables are required; everything else degrades to an absent dataset.
func Load(cfg config.SourcesConfig, logger *slog.Logger) (*Snapshot, error) {
	snap := &Snapshot{}

	if cfg.MonthlyAggregatePath == "" {
		return nil, fmt.Errorf("monthly aggregate: %w", model.ErrMissingRequiredInput)
	}
	monthly, err := LoadMonthlyCSV(cfg.MonthlyAggregatePath, logger)
	if err != nil {
		return nil, fmt.Errorf("monthly aggregate: %w", err)
	}
	snap.Monthly = monthly

	if cfg.StateFeaturesPath == "" {
		return nil, fmt.Errorf("state features: %w", model.ErrMissingRequiredInput)
	}
	states, err := LoadStateFeaturesCSV(cfg.StateFeaturesPath, logger)
	if err != nil {
		return nil, fmt.Errorf("state features: %w", err)
	}
	snap.States = states

	if cfg.RegionUpdatesPath != "" {
		if regions, err := LoadRegionUpdatesCSV(cfg.RegionUpdatesPath, logger); err != nil {
			if logger != nil {
				logger.Warn("region updates unavailable, detectors will skip", "err", err)
			}
		} else {
			snap.Regions = regions
		}
	}
	if cfg.CenterOpsPath != "" {
		if centers, err := LoadCenterOpsCSV(cfg.CenterOpsPath, logger); err != nil {
			if logger != nil {
				logger.Warn("center ops unavailable, detectors will skip", "err", err)
			}
		} else {
			snap.Centers = centers
		}
	}
	if cfg.AuthRetriesPath != "" {
		if retries, err := LoadAuthRetriesCSV(cfg.AuthRetriesPath, logger); err != nil {
			if logger != nil {
				logger.Warn("auth retries unavailable, detectors will skip", "err", err)
			}
		} else {
			snap.Retries = retries
		}
	}
	if cfg.PeerBenchmarksPath != "" {
		if bench, err := LoadPeerBenchmarksCSV(cfg.PeerBenchmarksPath, logger); err != nil {
			if logger != nil {
				logger.Warn("peer benchmarks unavailable, detectors will skip", "err", err)
			}
		} else {
			snap.Benchmarks = bench
		}
	}
	return snap, nil
}

// MergeRegions folds feed rows into the snapshot's region series, keeping the
// snapshot row when a (date, region) pair collides, and re-sorts by date.
func (s *Snapshot) MergeRegions(rows model.RegionSeries) {
	if len(rows) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(s.Regions))
	for _, rec := range s.Regions {
		seen[regionKey(rec)] = struct{}{}
	}
	for _, rec := range rows {
		key := regionKey(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		s.Regions = append(s.Regions, rec)
	}
	sort.SliceStable(s.Regions, func(i, j int) bool {
		return s.Regions[i].Date.Before(s.Regions[j].Date)
	})
}

func regionKey(rec model.RegionRecord) string {
	return rec.Date.Format(model.DateLayout) + "|" + rec.Region
}
