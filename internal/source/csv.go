package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"govguard/internal/model"
)

type table struct {
	columns map[string]int
	rows    [][]string
}

func readCSV(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, model.ErrMissingRequiredInput)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	t := &table{columns: make(map[string]int, len(header))}
	for i, name := range header {
		t.columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structurally broken line: drop it, keep the run going.
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *table) col(name string) (int, bool) {
	i, ok := t.columns[name]
	return i, ok
}

func (t *table) str(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (t *table) float(row []string, idx int) (float64, error) {
	s := t.str(row, idx)
	if s == "" {
		return 0, errors.New("empty numeric field")
	}
	return strconv.ParseFloat(s, 64)
}

func (t *table) date(row []string, idx int) (time.Time, error) {
	return time.Parse(model.DateLayout, t.str(row, idx))
}

func (t *table) bool(row []string, idx int) bool {
	switch strings.ToLower(t.str(row, idx)) {
	case "true", "1", "yes", "t":
		return true
	}
	return false
}

// LoadMonthlyCSV reads the national monthly aggregate: a period column plus
// one column per tracked metric, each becoming a MetricSeries.
func LoadMonthlyCSV(path string, logger *slog.Logger) ([]model.MetricSeries, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	periodIdx, ok := t.col("month")
	if !ok {
		periodIdx, ok = t.col("period")
	}
	if !ok {
		return nil, fmt.Errorf("%s: no month/period column", path)
	}

	metricNames := make([]string, 0, len(t.columns))
	for name := range t.columns {
		if idx := t.columns[name]; idx != periodIdx {
			metricNames = append(metricNames, name)
		}
	}
	sort.Strings(metricNames)

	series := make(map[string]*model.MetricSeries, len(metricNames))
	for _, name := range metricNames {
		series[name] = &model.MetricSeries{Metric: name}
	}
	skipped := 0
	for _, row := range t.rows {
		period := t.str(row, periodIdx)
		if period == "" {
			skipped++
			continue
		}
		for _, name := range metricNames {
			v, err := t.float(row, t.columns[name])
			if err != nil {
				skipped++
				continue
			}
			series[name].Points = append(series[name].Points, model.MetricPoint{Period: period, Value: v})
		}
	}
	logSkipped(logger, path, skipped)

	out := make([]model.MetricSeries, 0, len(metricNames))
	for _, name := range metricNames {
		out = append(out, *series[name])
	}
	return out, nil
}

func LoadStateFeaturesCSV(path string, logger *slog.Logger) ([]model.StateFeatureRecord, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	stateIdx, ok := t.col("state")
	if !ok {
		return nil, fmt.Errorf("%s: no state column", path)
	}
	ratioIdx, ok1 := t.col("biometric_update_ratio")
	volIdx, ok2 := t.col("growth_volatility")
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%s: missing feature columns", path)
	}

	var out []model.StateFeatureRecord
	skipped := 0
	for _, row := range t.rows {
		ratio, err1 := t.float(row, ratioIdx)
		vol, err2 := t.float(row, volIdx)
		state := t.str(row, stateIdx)
		if state == "" || err1 != nil || err2 != nil {
			skipped++
			continue
		}
		out = append(out, model.StateFeatureRecord{State: state, BioUpdateRatio: ratio, GrowthVolatility: vol})
	}
	logSkipped(logger, path, skipped)
	return out, nil
}

// LoadRegionUpdatesCSV reads the per-region daily series, enforcing the
// (date, region) uniqueness invariant (first row wins) and date ordering.
func LoadRegionUpdatesCSV(path string, logger *slog.Logger) (model.RegionSeries, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	dateIdx, ok1 := t.col("date")
	regionIdx, ok2 := t.col("region")
	volIdx, ok3 := t.col("update_volume_count")
	succIdx, ok4 := t.col("successful_updates")
	rejIdx, ok5 := t.col("rejected_updates")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, fmt.Errorf("%s: missing region update columns", path)
	}

	var out model.RegionSeries
	seen := make(map[string]struct{})
	skipped := 0
	for _, row := range t.rows {
		date, errD := t.date(row, dateIdx)
		vol, err1 := t.float(row, volIdx)
		succ, err2 := t.float(row, succIdx)
		rej, err3 := t.float(row, rejIdx)
		region := t.str(row, regionIdx)
		if region == "" || errD != nil || err1 != nil || err2 != nil || err3 != nil {
			skipped++
			continue
		}
		rec := model.RegionRecord{Date: date, Region: region, Volume: vol, Successes: succ, Rejections: rej}
		key := regionKey(rec)
		if _, dup := seen[key]; dup {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	logSkipped(logger, path, skipped)
	return out, nil
}

func LoadCenterOpsCSV(path string, logger *slog.Logger) ([]model.CenterRecord, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	idIdx, ok1 := t.col("center_id")
	regionIdx, ok2 := t.col("region")
	timeIdx, ok3 := t.col("avg_processing_time_min")
	errIdx, ok4 := t.col("biometric_error_rate_pct")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("%s: missing center ops columns", path)
	}

	var out []model.CenterRecord
	skipped := 0
	for _, row := range t.rows {
		avg, err1 := t.float(row, timeIdx)
		rate, err2 := t.float(row, errIdx)
		id := t.str(row, idIdx)
		if id == "" || err1 != nil || err2 != nil {
			skipped++
			continue
		}
		out = append(out, model.CenterRecord{
			CenterID:             id,
			Region:               t.str(row, regionIdx),
			AvgProcessingTimeMin: avg,
			BioErrorRatePct:      rate,
		})
	}
	logSkipped(logger, path, skipped)
	return out, nil
}

func LoadAuthRetriesCSV(path string, logger *slog.Logger) ([]model.AuthRetryRecord, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	dateIdx, ok1 := t.col("date")
	regionIdx, ok2 := t.col("region")
	totalIdx, ok3 := t.col("total_auth_attempts")
	retryIdx, ok4 := t.col("high_retry_events_count")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("%s: missing auth retry columns", path)
	}

	var out []model.AuthRetryRecord
	skipped := 0
	for _, row := range t.rows {
		date, errD := t.date(row, dateIdx)
		total, err1 := t.float(row, totalIdx)
		retries, err2 := t.float(row, retryIdx)
		if errD != nil || err1 != nil || err2 != nil {
			skipped++
			continue
		}
		out = append(out, model.AuthRetryRecord{
			Date:            date,
			Region:          t.str(row, regionIdx),
			TotalAttempts:   total,
			HighRetryEvents: retries,
		})
	}
	logSkipped(logger, path, skipped)
	return out, nil
}

func LoadPeerBenchmarksCSV(path string, logger *slog.Logger) ([]model.PeerBenchmarkRecord, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	stateIdx, ok1 := t.col("state")
	flagIdx, ok2 := t.col("peer_lag_flag")
	ratioIdx, ok3 := t.col("biometric_update_ratio")
	medianIdx, ok4 := t.col("cohort_median_bio_ratio")
	gapIdx, ok5 := t.col("bio_performance_gap_pct")
	groupIdx, ok6 := t.col("peer_group_id")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, fmt.Errorf("%s: missing peer benchmark columns", path)
	}

	var out []model.PeerBenchmarkRecord
	skipped := 0
	for _, row := range t.rows {
		ratio, err1 := t.float(row, ratioIdx)
		median, err2 := t.float(row, medianIdx)
		gap, err3 := t.float(row, gapIdx)
		state := t.str(row, stateIdx)
		if state == "" || err1 != nil || err2 != nil || err3 != nil {
			skipped++
			continue
		}
		out = append(out, model.PeerBenchmarkRecord{
			State:                state,
			PeerLagFlag:          t.bool(row, flagIdx),
			BioUpdateRatio:       ratio,
			CohortMedianBioRatio: median,
			BioPerformanceGapPct: gap,
			PeerGroupID:          t.str(row, groupIdx),
		})
	}
	logSkipped(logger, path, skipped)
	return out, nil
}

func logSkipped(logger *slog.Logger, path string, skipped int) {
	if logger != nil && skipped > 0 {
		logger.Warn("skipped malformed rows", "path", path, "rows", skipped)
	}
}
