package storage

import (
	"context"
	"path/filepath"
	"testing"

	"govguard/internal/config"
	"govguard/internal/model"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestNewStoreDisabled(t *testing.T) {
	s, err := NewStore(config.StorageConfig{Enabled: false})
	if err != nil || s != nil {
		t.Fatalf("disabled storage: %v %v", s, err)
	}
}

func TestNewStoreUnknownDriver(t *testing.T) {
	if _, err := NewStore(config.StorageConfig{Enabled: true, Driver: "oracle"}); err == nil {
		t.Fatalf("unknown driver accepted")
	}
}

func TestSaveReportRoundTrip(t *testing.T) {
	s := openTestStore(t)
	rep := &model.Report{
		RunID: "run-1",
		TemporalAnomalies: []model.Anomaly{{
			Type:                model.TypeSpike,
			Severity:            model.SeverityCritical,
			Metric:              "enrolments",
			Region:              "North",
			ComplianceSignature: "ABCD1234",
		}},
		Suppressed: []model.Anomaly{{
			Type:                model.TypeDrop,
			Severity:            model.SeverityMedium,
			IsSuppressed:        true,
			ComplianceSignature: "EF015678",
		}},
	}
	if err := s.SaveReport(context.Background(), rep); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Second save with the same run id must fail the UNIQUE constraint.
	if err := s.SaveReport(context.Background(), rep); err == nil {
		t.Fatalf("duplicate run id accepted")
	}
}

func TestBenignPatternsEmptyTable(t *testing.T) {
	s := openTestStore(t)
	patterns, err := s.LoadBenignPatterns(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(patterns) != 0 {
		t.Fatalf("unexpected patterns: %+v", patterns)
	}
}
