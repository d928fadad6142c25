package model

import (
	"errors"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
)

// Rank orders severities for escalation checks; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	}
	return 0
}

type AnomalyType string

const (
	TypeSpike             AnomalyType = "Spike"
	TypeDrop              AnomalyType = "Drop"
	TypeTrendBreak        AnomalyType = "Trend Break"
	TypeSeasonalDeviation AnomalyType = "Seasonal Deviation"
	TypeLowBioUpdates     AnomalyType = "Low Biometric Updates"
	TypeErraticGrowth     AnomalyType = "Erratic Growth Pattern"
	TypeImpossibleSpeed   AnomalyType = "Impossible Efficiency"
	TypeHighBioFailure    AnomalyType = "High Bio-Failure Rate"
	TypeAuthBruteForce    AnomalyType = "Auth Brute-Force Risk"
	TypeIsolationOutlier  AnomalyType = "Isolation Forest Outlier"
	TypeClusterOutlier    AnomalyType = "Cluster Outlier"
	TypeRegimeChange      AnomalyType = "Regime Change"
	TypePeerGap           AnomalyType = "Peer Performance Gap"
)

type ConfirmationStatus string

const (
	StatusConfirmed ConfirmationStatus = "CONFIRMED"
	StatusPotential ConfirmationStatus = "POTENTIAL"
)

const DateLayout = "2006-01-02"

// Anomaly is the central record. Every anomaly is created by exactly one
// detector and enriched, never replaced, by the confirmation and correlation
// stages. Optional keys stay empty unless the producing detector sets them.
type Anomaly struct {
	Type        AnomalyType `json:"anomaly_type"`
	Severity    Severity    `json:"severity"`
	Metric      string      `json:"metric"`
	Value       float64     `json:"value"`
	Explanation string      `json:"explanation"`

	Date     string `json:"date,omitempty"`
	Period   string `json:"period,omitempty"`
	Region   string `json:"region,omitempty"`
	State    string `json:"state,omitempty"`
	CenterID string `json:"center_id,omitempty"`

	ZScore        float64 `json:"zscore,omitempty"`
	Deviation     float64 `json:"deviation,omitempty"`
	Score         float64 `json:"anomaly_score,omitempty"`
	ClusterID     int     `json:"cluster_id,omitempty"`
	ExpectedRange string  `json:"expected_range,omitempty"`

	// Set by multi-signal confirmation.
	ConfirmationStatus ConfirmationStatus `json:"confirmation_status,omitempty"`
	DetectedBy         []string           `json:"detected_by,omitempty"`
	DetectionCount     int                `json:"detection_count,omitempty"`

	// Set by the correlation and suppression engine.
	TemporalClusterID    string  `json:"temporal_cluster_id,omitempty"`
	ConcurrentAnomalies  int     `json:"concurrent_anomalies,omitempty"`
	GeoHotspotScore      float64 `json:"geo_hotspot_score,omitempty"`
	IsPersistentOffender bool    `json:"is_persistent_offender,omitempty"`
	IsSuppressed         bool    `json:"is_suppressed,omitempty"`
	SuppressionReason    string  `json:"suppression_reason,omitempty"`
	ConfidenceScore      float64 `json:"confidence_score,omitempty"`
	ComplianceSignature  string  `json:"compliance_signature,omitempty"`
}

// ParsedDate returns the anomaly date if one is set and parseable.
func (a Anomaly) ParsedDate() (time.Time, bool) {
	if a.Date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, a.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type MetricPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// MetricSeries is an ordered (period, value) sequence for one named metric.
// It is immutable for the duration of a detection run.
type MetricSeries struct {
	Metric string        `json:"metric"`
	Points []MetricPoint `json:"points"`
}

type RegionRecord struct {
	Date       time.Time `json:"date"`
	Region     string    `json:"region"`
	Volume     float64   `json:"update_volume_count"`
	Successes  float64   `json:"successful_updates"`
	Rejections float64   `json:"rejected_updates"`
}

// RegionSeries is ordered by date; (date, region) pairs are unique.
type RegionSeries []RegionRecord

type CenterRecord struct {
	CenterID             string  `json:"center_id"`
	Region               string  `json:"region"`
	AvgProcessingTimeMin float64 `json:"avg_processing_time_min"`
	BioErrorRatePct      float64 `json:"biometric_error_rate_pct"`
}

type AuthRetryRecord struct {
	Date            time.Time `json:"date"`
	Region          string    `json:"region"`
	TotalAttempts   float64   `json:"total_auth_attempts"`
	HighRetryEvents float64   `json:"high_retry_events_count"`
}

type StateFeatureRecord struct {
	State            string  `json:"state"`
	BioUpdateRatio   float64 `json:"biometric_update_ratio"`
	GrowthVolatility float64 `json:"growth_volatility"`
}

type PeerBenchmarkRecord struct {
	State                string  `json:"state"`
	PeerLagFlag          bool    `json:"peer_lag_flag"`
	BioUpdateRatio       float64 `json:"biometric_update_ratio"`
	CohortMedianBioRatio float64 `json:"cohort_median_bio_ratio"`
	BioPerformanceGapPct float64 `json:"bio_performance_gap_pct"`
	PeerGroupID          string  `json:"peer_group_id"`
}

// BenignPattern is one row of the operator-maintained false-positive history.
// An anomaly matching a pattern is suppressed, not dropped.
type BenignPattern struct {
	Type    AnomalyType `json:"anomaly_type"`
	Region  string      `json:"region,omitempty"`
	Weekday int         `json:"weekday"`
	Reason  string      `json:"reason"`
}

type PeerBenchmarkSummary struct {
	TotalPeerGaps int    `json:"total_peer_gaps"`
	Status        string `json:"status"`
}

type ComplianceBlock struct {
	PolicyVersion      string `json:"policy_version"`
	BiometricAccess    string `json:"biometric_access_status"`
	PIIScrubbingStatus string `json:"pii_scrubbing_status"`
	SignedCount        int    `json:"audit_signed_count"`
}

type Summary struct {
	TotalAnomalies int                  `json:"total_anomalies"`
	CriticalCount  int                  `json:"critical_count"`
	HighCount      int                  `json:"high_count"`
	MediumCount    int                  `json:"medium_count"`
	ConfirmedCount int                  `json:"confirmed_count"`
	PotentialCount int                  `json:"potential_count"`
	SuppressedML   int                  `json:"suppressed_count"`
	FPEWSAlerts    int                  `json:"fpews_alerts"`
	PeerBenchmark  PeerBenchmarkSummary `json:"peer_benchmarking"`
	Compliance     ComplianceBlock      `json:"compliance_audit"`
}

// Report is an immutable per-run snapshot. No anomaly appears in it without a
// compliance signature.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Summary     Summary   `json:"summary"`

	TemporalAnomalies []Anomaly `json:"temporal_anomalies"`
	StateAnomalies    []Anomaly `json:"state_anomalies"`
	CenterAnomalies   []Anomaly `json:"center_anomalies"`
	RetryAnomalies    []Anomaly `json:"retry_anomalies"`
	SeasonalAnomalies []Anomaly `json:"seasonal_anomalies"`
	PeerLagAnomalies  []Anomaly `json:"peer_lag_anomalies"`
	MLConfirmed       []Anomaly `json:"ml_confirmed_anomalies"`
	MLPotential       []Anomaly `json:"ml_potential_anomalies"`
	Suppressed        []Anomaly `json:"suppressed_anomalies"`
}

// Categories returns the per-category lists keyed by their report name.
func (r *Report) Categories() map[string][]Anomaly {
	return map[string][]Anomaly{
		"temporal":     r.TemporalAnomalies,
		"state":        r.StateAnomalies,
		"center":       r.CenterAnomalies,
		"retry":        r.RetryAnomalies,
		"seasonal":     r.SeasonalAnomalies,
		"peer_lag":     r.PeerLagAnomalies,
		"ml_confirmed": r.MLConfirmed,
		"ml_potential": r.MLPotential,
		"suppressed":   r.Suppressed,
	}
}

// ErrMissingRequiredInput is returned by the source loader when a dataset the
// run cannot proceed without is absent. Optional datasets never produce it.
var ErrMissingRequiredInput = errors.New("required input dataset missing")
