package engine

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"govguard/internal/config"
	"govguard/internal/logging"
	"govguard/internal/model"
	"govguard/internal/report"
	"govguard/internal/source"
)

func newEngineForTest() (*Engine, *report.Store) {
	reports := report.NewStore(10)
	logger := logging.NewLoggerTo(io.Discard, "error")
	eng := New(config.Static(config.DefaultConfig()), logger, nil, reports)
	return eng, reports
}

func cleanSnapshot() *source.Snapshot {
	snap := &source.Snapshot{}
	monthly := model.MetricSeries{Metric: "enrolments"}
	for i := 0; i < 12; i++ {
		v := 1000.0
		if i%2 == 0 {
			v = 1010.0
		}
		monthly.Points = append(monthly.Points, model.MetricPoint{
			Period: fmt.Sprintf("2025-%02d", i+1), Value: v,
		})
	}
	snap.Monthly = []model.MetricSeries{monthly}

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		v := 500.0
		if i%3 == 0 {
			v = 510.0
		}
		snap.Regions = append(snap.Regions, model.RegionRecord{
			Date: base.AddDate(0, 0, i), Region: "North",
			Volume: v, Successes: v * 0.95, Rejections: v * 0.05,
		})
	}
	snap.States = []model.StateFeatureRecord{
		{State: "A", BioUpdateRatio: 0.80, GrowthVolatility: 0.10},
		{State: "B", BioUpdateRatio: 0.81, GrowthVolatility: 0.11},
		{State: "C", BioUpdateRatio: 0.79, GrowthVolatility: 0.09},
	}
	snap.Centers = []model.CenterRecord{
		{CenterID: "C1", Region: "North", AvgProcessingTimeMin: 12, BioErrorRatePct: 1.0},
	}
	snap.Retries = []model.AuthRetryRecord{
		{Date: base, Region: "North", TotalAttempts: 1000, HighRetryEvents: 10},
	}
	return snap
}

func TestRunCleanSnapshotQuiet(t *testing.T) {
	eng, reports := newEngineForTest()
	rep, err := eng.Run(context.Background(), cleanSnapshot())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Summary.CriticalCount != 0 {
		t.Fatalf("clean snapshot produced criticals: %+v", rep.Summary)
	}
	if rep.Summary.ConfirmedCount != 0 {
		t.Fatalf("clean snapshot produced confirmations: %d", rep.Summary.ConfirmedCount)
	}
	if rep.Summary.SuppressedML != 0 {
		t.Fatalf("clean snapshot produced suppressions: %d", rep.Summary.SuppressedML)
	}
	if reports.Latest() == nil || reports.Latest().RunID != rep.RunID {
		t.Fatalf("report not recorded in history")
	}
}

func TestRunFlagsInjectedFraudSignals(t *testing.T) {
	eng, _ := newEngineForTest()
	snap := cleanSnapshot()
	snap.Monthly[0].Points[11].Value = 50000
	snap.Centers = append(snap.Centers, model.CenterRecord{
		CenterID: "C9", Region: "North", AvgProcessingTimeMin: 2.0, BioErrorRatePct: 1.0,
	})
	snap.Retries = append(snap.Retries, model.AuthRetryRecord{
		Date:   time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		Region: "North", TotalAttempts: 1000, HighRetryEvents: 400,
	})

	rep, err := eng.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rep.TemporalAnomalies) == 0 {
		t.Fatalf("monthly spike not flagged")
	}
	if len(rep.CenterAnomalies) != 1 {
		t.Fatalf("center anomalies: %d", len(rep.CenterAnomalies))
	}
	if len(rep.RetryAnomalies) != 1 {
		t.Fatalf("retry anomalies: %d", len(rep.RetryAnomalies))
	}
	if rep.Summary.FPEWSAlerts != 2 {
		t.Fatalf("fpews: %d", rep.Summary.FPEWSAlerts)
	}
	if rep.Summary.CriticalCount < 2 {
		t.Fatalf("criticals: %d", rep.Summary.CriticalCount)
	}
	for _, a := range rep.CenterAnomalies {
		if a.ComplianceSignature == "" {
			t.Fatalf("anomaly missing signature")
		}
		if a.ConfidenceScore < 75 || a.ConfidenceScore > 99.9 {
			t.Fatalf("confidence out of range: %v", a.ConfidenceScore)
		}
	}
}

func TestRunSurvivesEmptySnapshot(t *testing.T) {
	eng, _ := newEngineForTest()
	rep, err := eng.Run(context.Background(), &source.Snapshot{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Summary.TotalAnomalies != 0 {
		t.Fatalf("empty snapshot produced anomalies: %d", rep.Summary.TotalAnomalies)
	}
}

func TestRunOnceMissingRequiredInput(t *testing.T) {
	reports := report.NewStore(10)
	logger := logging.NewLoggerTo(io.Discard, "error")
	cfg := config.DefaultConfig()
	eng := New(config.Static(cfg), logger, nil, reports)
	if _, err := eng.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error for unconfigured required inputs")
	}
}

func TestFeedMergedIntoRun(t *testing.T) {
	eng, _ := newEngineForTest()
	feed := source.NewFeed()
	feed.Append(model.RegionRecord{
		Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), Region: "North", Volume: 500,
	})
	eng.AttachFeed(feed)

	snap := cleanSnapshot()
	before := len(snap.Regions)
	snap.MergeRegions(feed.Snapshot())
	if len(snap.Regions) != before+1 {
		t.Fatalf("feed row not merged")
	}
	if _, err := eng.Run(context.Background(), snap); err != nil {
		t.Fatalf("run: %v", err)
	}
}
