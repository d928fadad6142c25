// Package report assembles the per-run anomaly report and keeps a bounded
// history of recent reports for the read-only API.
package report

import (
	"time"

	"github.com/google/uuid"

	"govguard/internal/config"
	"govguard/internal/correlate"
	"govguard/internal/model"
)

// Categories carries the enriched anomaly lists, one per report category.
// Suppressed anomalies may still be present in any list; Assemble moves them
// to the report's suppressed section.
type Categories struct {
	Temporal    []model.Anomaly
	State       []model.Anomaly
	Center      []model.Anomaly
	Retry       []model.Anomaly
	Seasonal    []model.Anomaly
	PeerLag     []model.Anomaly
	MLConfirmed []model.Anomaly
	MLPotential []model.Anomaly
}

// Assemble builds the immutable report snapshot. Every anomaly is guaranteed
// a compliance signature before inclusion; the summary counts only live
// (non-suppressed) anomalies, while suppressed ones stay visible in their own
// section for audit.
func Assemble(cfg config.ReportConfig, cats Categories) *model.Report {
	r := &model.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	var suppressed []model.Anomaly
	take := func(list []model.Anomaly) []model.Anomaly {
		live := make([]model.Anomaly, 0, len(list))
		for _, a := range list {
			if a.ComplianceSignature == "" {
				a.ComplianceSignature = correlate.Signature(a)
			}
			if a.IsSuppressed {
				suppressed = append(suppressed, a)
				continue
			}
			live = append(live, a)
		}
		return live
	}

	r.TemporalAnomalies = take(cats.Temporal)
	r.StateAnomalies = take(cats.State)
	r.CenterAnomalies = take(cats.Center)
	r.RetryAnomalies = take(cats.Retry)
	r.SeasonalAnomalies = take(cats.Seasonal)
	r.PeerLagAnomalies = take(cats.PeerLag)
	r.MLConfirmed = take(cats.MLConfirmed)
	r.MLPotential = take(cats.MLPotential)
	r.Suppressed = suppressed

	live := 0
	for name, list := range r.Categories() {
		if name == "suppressed" {
			continue
		}
		live += len(list)
		for _, a := range list {
			switch a.Severity {
			case model.SeverityCritical:
				r.Summary.CriticalCount++
			case model.SeverityHigh:
				r.Summary.HighCount++
			case model.SeverityMedium:
				r.Summary.MediumCount++
			}
		}
	}
	r.Summary.TotalAnomalies = live
	r.Summary.ConfirmedCount = len(r.MLConfirmed)
	r.Summary.PotentialCount = len(r.MLPotential)
	r.Summary.SuppressedML = len(r.Suppressed)
	r.Summary.FPEWSAlerts = len(r.CenterAnomalies) + len(r.RetryAnomalies)
	r.Summary.PeerBenchmark = model.PeerBenchmarkSummary{
		TotalPeerGaps: len(r.PeerLagAnomalies),
		Status:        "ACTIVE",
	}
	r.Summary.Compliance = model.ComplianceBlock{
		PolicyVersion:      cfg.PolicyVersion,
		BiometricAccess:    "ZERO_ACCESS",
		PIIScrubbingStatus: "CERTIFIED_AGGREGATED",
		SignedCount:        live + len(r.Suppressed),
	}
	return r
}
