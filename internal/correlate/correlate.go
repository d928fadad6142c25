// Package correlate enriches the full anomaly set with temporal, geographic
// and entity context, suppresses known-benign patterns, and stamps each
// anomaly with a confidence score and a compliance signature. Suppressed
// anomalies are retained for audit, never dropped.
package correlate

import (
	"math"

	"govguard/internal/config"
	"govguard/internal/model"
)

type Engine struct {
	cfg   config.CorrelationConfig
	rules []Rule
}

func New(cfg config.CorrelationConfig, rules ...Rule) *Engine {
	if len(rules) == 0 && cfg.WeeklyDipEnabled {
		rules = []Rule{WeeklyDipRule{Weekday: cfg.WeeklyDipWeekday}}
	}
	return &Engine{cfg: cfg, rules: rules}
}

// Enrich runs the correlation pipeline over the union of all anomalies.
// Stage order matters: temporal and geographic context feed the confidence
// score, and the compliance signature is stamped last, on every anomaly
// regardless of suppression state.
func (e *Engine) Enrich(anomalies []model.Anomaly) []model.Anomaly {
	if len(anomalies) == 0 {
		return nil
	}
	out := append([]model.Anomaly(nil), anomalies...)

	e.correlateTemporal(out)
	e.correlateGeographic(out)
	e.correlateEntities(out)
	e.applySuppression(out)
	for i := range out {
		out[i].ConfidenceScore = e.confidence(out[i])
		out[i].ComplianceSignature = Signature(out[i])
	}
	return out
}

// correlateTemporal counts, for every dated anomaly, the anomalies falling in
// the surrounding window; dense windows share a calendar-keyed cluster id.
func (e *Engine) correlateTemporal(anomalies []model.Anomaly) {
	window := float64(e.cfg.WindowDays)
	for i := range anomalies {
		center, ok := anomalies[i].ParsedDate()
		if !ok {
			continue
		}
		count := 0
		for j := range anomalies {
			other, ok := anomalies[j].ParsedDate()
			if !ok {
				continue
			}
			if math.Abs(center.Sub(other).Hours()) <= window*24 {
				count++
			}
		}
		anomalies[i].ConcurrentAnomalies = count
		if count > e.cfg.ClusterMinSize {
			anomalies[i].TemporalClusterID = "TEMP-" + center.Format("20060102")
		}
	}
}

// correlateGeographic scores each region by its share of the total anomaly
// volume; the score applies uniformly to every anomaly in that region.
func (e *Engine) correlateGeographic(anomalies []model.Anomaly) {
	counts := make(map[string]int)
	for _, a := range anomalies {
		if a.Region != "" {
			counts[a.Region]++
		}
	}
	total := float64(len(anomalies))
	for i := range anomalies {
		if anomalies[i].Region == "" {
			continue
		}
		share := float64(counts[anomalies[i].Region]) / total
		anomalies[i].GeoHotspotScore = math.Round(share*100) / 100
	}
}

// correlateEntities flags centers that recur across the anomaly set.
func (e *Engine) correlateEntities(anomalies []model.Anomaly) {
	counts := make(map[string]int)
	for _, a := range anomalies {
		if a.CenterID != "" {
			counts[a.CenterID]++
		}
	}
	for i := range anomalies {
		id := anomalies[i].CenterID
		if id != "" && counts[id] > e.cfg.OffenderMinCount {
			anomalies[i].IsPersistentOffender = true
		}
	}
}

func (e *Engine) applySuppression(anomalies []model.Anomaly) {
	for i := range anomalies {
		for _, rule := range e.rules {
			reason, ok := rule.Match(anomalies[i])
			if !ok {
				continue
			}
			anomalies[i].IsSuppressed = true
			anomalies[i].SuppressionReason = reason
			break
		}
	}
}

// confidence is monotone in severity, concurrency, hotspot share and
// persistence, and capped below 100 so no anomaly reads as a certainty.
func (e *Engine) confidence(a model.Anomaly) float64 {
	score := 75.0
	switch a.Severity {
	case model.SeverityCritical:
		score += 15
	case model.SeverityHigh:
		score += 10
	}
	if a.ConcurrentAnomalies > e.cfg.ClusterMinSize {
		score += 5
	}
	if a.GeoHotspotScore > e.cfg.HotspotBoostShare {
		score += 4
	}
	if a.IsPersistentOffender {
		score += 5
	}
	return math.Min(99.9, score)
}

// Split separates the enriched set into live and suppressed anomalies.
func Split(anomalies []model.Anomaly) (live, suppressed []model.Anomaly) {
	for _, a := range anomalies {
		if a.IsSuppressed {
			suppressed = append(suppressed, a)
		} else {
			live = append(live, a)
		}
	}
	return live, suppressed
}
