// Package confirm cross-validates anomalies from independent detection
// sources. An anomaly corroborated by two or more distinct sources is
// promoted to CONFIRMED; single-source findings stay POTENTIAL. This is the
// false-positive control for the ML bank.
package confirm

import (
	"sort"
	"strings"

	"govguard/internal/model"
)

type Result struct {
	Confirmed []model.Anomaly
	Potential []model.Anomaly
}

type signature struct {
	date   string
	region string
	metric string
}

func signatureOf(a model.Anomaly) signature {
	metric := a.Metric
	if metric == "" {
		metric = "general"
	}
	return signature{date: a.Date, region: a.Region, metric: metric}
}

// Confirm joins anomalies across sources by (date, region, metric) signature.
// Confirmation raises severity to at least High; it never lowers Critical.
func Confirm(sources map[string][]model.Anomaly, minSources int) Result {
	if minSources < 2 {
		minSources = 2
	}
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	type entry struct {
		anomaly model.Anomaly
		seen    map[string]bool
	}
	entries := make(map[signature]*entry)
	var order []signature

	for _, name := range names {
		for _, a := range sources[name] {
			sig := signatureOf(a)
			e, ok := entries[sig]
			if !ok {
				e = &entry{anomaly: a, seen: make(map[string]bool)}
				entries[sig] = e
				order = append(order, sig)
			}
			if !e.seen[name] {
				e.seen[name] = true
				e.anomaly.DetectedBy = append(e.anomaly.DetectedBy, name)
			}
		}
	}

	var result Result
	for _, sig := range order {
		e := entries[sig]
		a := e.anomaly
		a.DetectionCount = len(e.seen)
		if a.DetectionCount >= minSources {
			a.ConfirmationStatus = model.StatusConfirmed
			if a.Severity.Rank() < model.SeverityHigh.Rank() {
				a.Severity = model.SeverityHigh
			}
			a.Explanation = strings.TrimSpace(a.Explanation + " [confirmed by: " + SourceList(a) + "]")
			result.Confirmed = append(result.Confirmed, a)
		} else {
			a.ConfirmationStatus = model.StatusPotential
			result.Potential = append(result.Potential, a)
		}
	}
	return result
}

// SourceList renders the distinct detecting sources for explanations.
func SourceList(a model.Anomaly) string {
	return strings.Join(a.DetectedBy, ", ")
}
