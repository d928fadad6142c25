package report

import (
	"fmt"
	"testing"

	"govguard/internal/config"
	"govguard/internal/model"
)

func TestAssembleCountsAndCompliance(t *testing.T) {
	cats := Categories{
		Temporal: []model.Anomaly{
			{Type: model.TypeSpike, Severity: model.SeverityCritical, Date: "2025-06-02"},
			{Type: model.TypeDrop, Severity: model.SeverityMedium, Date: "2025-06-08", IsSuppressed: true, SuppressionReason: "Historical Pattern: Weekly Dip (Benign)"},
		},
		Center: []model.Anomaly{
			{Type: model.TypeImpossibleSpeed, Severity: model.SeverityCritical, CenterID: "C1"},
		},
		Retry: []model.Anomaly{
			{Type: model.TypeAuthBruteForce, Severity: model.SeverityCritical, Date: "2025-06-02"},
		},
		MLConfirmed: []model.Anomaly{
			{Type: model.TypeIsolationOutlier, Severity: model.SeverityHigh, ConfirmationStatus: model.StatusConfirmed},
		},
		MLPotential: []model.Anomaly{
			{Type: model.TypeClusterOutlier, Severity: model.SeverityMedium, ConfirmationStatus: model.StatusPotential},
		},
	}
	r := Assemble(config.DefaultConfig().Report, cats)

	if r.RunID == "" {
		t.Fatalf("run id missing")
	}
	if r.Summary.TotalAnomalies != 5 {
		t.Fatalf("total: %d", r.Summary.TotalAnomalies)
	}
	if r.Summary.CriticalCount != 3 || r.Summary.HighCount != 1 || r.Summary.MediumCount != 1 {
		t.Fatalf("severity counts: %+v", r.Summary)
	}
	if len(r.Suppressed) != 1 || r.Summary.SuppressedML != 1 {
		t.Fatalf("suppressed handling: %+v", r.Summary)
	}
	if r.Summary.FPEWSAlerts != 2 {
		t.Fatalf("fpews: %d", r.Summary.FPEWSAlerts)
	}
	if r.Summary.ConfirmedCount != 1 || r.Summary.PotentialCount != 1 {
		t.Fatalf("confirmation counts: %+v", r.Summary)
	}
	c := r.Summary.Compliance
	if c.BiometricAccess != "ZERO_ACCESS" || c.PIIScrubbingStatus != "CERTIFIED_AGGREGATED" {
		t.Fatalf("compliance block: %+v", c)
	}
	if c.SignedCount != 6 {
		t.Fatalf("signed count: %d", c.SignedCount)
	}
}

func TestAssembleStampsMissingSignatures(t *testing.T) {
	r := Assemble(config.DefaultConfig().Report, Categories{
		MLPotential: []model.Anomaly{{Type: model.TypeClusterOutlier, Severity: model.SeverityMedium, Date: "2025-06-02"}},
	})
	if r.MLPotential[0].ComplianceSignature == "" {
		t.Fatalf("anomaly entered report unsigned")
	}
}

func TestAssembleEmpty(t *testing.T) {
	r := Assemble(config.DefaultConfig().Report, Categories{})
	if r.Summary.TotalAnomalies != 0 || r.Summary.Compliance.SignedCount != 0 {
		t.Fatalf("empty run summary: %+v", r.Summary)
	}
	if r.Summary.PeerBenchmark.Status != "ACTIVE" {
		t.Fatalf("peer benchmark status: %s", r.Summary.PeerBenchmark.Status)
	}
}

func TestStoreRingBuffer(t *testing.T) {
	s := NewStore(3)
	if s.Latest() != nil {
		t.Fatalf("empty store returned a report")
	}
	for i := 0; i < 5; i++ {
		s.Add(&model.Report{RunID: fmt.Sprintf("run-%d", i)})
	}
	if got := s.Latest().RunID; got != "run-4" {
		t.Fatalf("latest: %s", got)
	}
	list := s.List(0)
	if len(list) != 3 {
		t.Fatalf("list len: %d", len(list))
	}
	if list[0].RunID != "run-2" || list[2].RunID != "run-4" {
		t.Fatalf("eviction order wrong: %s..%s", list[0].RunID, list[2].RunID)
	}
	if got := s.List(1); len(got) != 1 || got[0].RunID != "run-4" {
		t.Fatalf("limited list: %+v", got)
	}
	s.Clear()
	if s.Latest() != nil {
		t.Fatalf("clear did not empty store")
	}
}
