package confirm

import (
	"strings"
	"testing"

	"govguard/internal/model"
)

func anomalyAt(date, region, metric string, sev model.Severity) model.Anomaly {
	return model.Anomaly{
		Type:     model.TypeIsolationOutlier,
		Severity: sev,
		Metric:   metric,
		Date:     date,
		Region:   region,
	}
}

func TestSingleSourceStaysPotential(t *testing.T) {
	sources := map[string][]model.Anomaly{
		"isolation_forest": {anomalyAt("2025-06-01", "North", "update_volume_count", model.SeverityMedium)},
	}
	r := Confirm(sources, 2)
	if len(r.Confirmed) != 0 || len(r.Potential) != 1 {
		t.Fatalf("confirmed=%d potential=%d", len(r.Confirmed), len(r.Potential))
	}
	a := r.Potential[0]
	if a.ConfirmationStatus != model.StatusPotential {
		t.Fatalf("status: %s", a.ConfirmationStatus)
	}
	if a.DetectionCount != 1 || len(a.DetectedBy) != 1 {
		t.Fatalf("detection bookkeeping: %+v", a)
	}
	if a.Severity != model.SeverityMedium {
		t.Fatalf("potential must keep original severity: %s", a.Severity)
	}
}

func TestTwoSourcesConfirmAndRaiseSeverity(t *testing.T) {
	sources := map[string][]model.Anomaly{
		"isolation_forest": {anomalyAt("2025-06-01", "North", "update_volume_count", model.SeverityMedium)},
		"zscore_cluster":   {anomalyAt("2025-06-01", "North", "update_volume_count", model.SeverityMedium)},
	}
	r := Confirm(sources, 2)
	if len(r.Confirmed) != 1 || len(r.Potential) != 0 {
		t.Fatalf("confirmed=%d potential=%d", len(r.Confirmed), len(r.Potential))
	}
	a := r.Confirmed[0]
	if a.ConfirmationStatus != model.StatusConfirmed {
		t.Fatalf("status: %s", a.ConfirmationStatus)
	}
	if a.Severity != model.SeverityHigh {
		t.Fatalf("confirmation must raise Medium to High, got %s", a.Severity)
	}
	if a.DetectionCount != 2 {
		t.Fatalf("detection count: %d", a.DetectionCount)
	}
	if !strings.Contains(a.Explanation, "isolation_forest") || !strings.Contains(a.Explanation, "zscore_cluster") {
		t.Fatalf("explanation does not name confirming sources: %q", a.Explanation)
	}
}

func TestConfirmationKeepsCritical(t *testing.T) {
	sources := map[string][]model.Anomaly{
		"changepoint":    {anomalyAt("2025-06-01", "North", "update_volume_count", model.SeverityCritical)},
		"zscore_cluster": {anomalyAt("2025-06-01", "North", "update_volume_count", model.SeverityMedium)},
	}
	r := Confirm(sources, 2)
	if len(r.Confirmed) != 1 {
		t.Fatalf("confirmed=%d", len(r.Confirmed))
	}
	if r.Confirmed[0].Severity != model.SeverityCritical {
		t.Fatalf("severity: %s", r.Confirmed[0].Severity)
	}
}

func TestEmptyMetricJoinsAsGeneral(t *testing.T) {
	a := anomalyAt("2025-06-01", "North", "", model.SeverityMedium)
	b := anomalyAt("2025-06-01", "North", "", model.SeverityMedium)
	r := Confirm(map[string][]model.Anomaly{"s1": {a}, "s2": {b}}, 2)
	if len(r.Confirmed) != 1 {
		t.Fatalf("metric-less anomalies did not join: %+v", r)
	}
}

func TestDifferentDatesStaySeparate(t *testing.T) {
	sources := map[string][]model.Anomaly{
		"s1": {anomalyAt("2025-06-01", "North", "m", model.SeverityMedium)},
		"s2": {anomalyAt("2025-06-02", "North", "m", model.SeverityMedium)},
	}
	r := Confirm(sources, 2)
	if len(r.Confirmed) != 0 || len(r.Potential) != 2 {
		t.Fatalf("confirmed=%d potential=%d", len(r.Confirmed), len(r.Potential))
	}
}

func TestDuplicateWithinOneSourceCountsOnce(t *testing.T) {
	a := anomalyAt("2025-06-01", "North", "m", model.SeverityMedium)
	r := Confirm(map[string][]model.Anomaly{"s1": {a, a}}, 2)
	if len(r.Potential) != 1 || r.Potential[0].DetectionCount != 1 {
		t.Fatalf("duplicate in one source inflated count: %+v", r.Potential)
	}
}
