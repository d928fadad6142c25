package correlate

import (
	"strings"

	"govguard/internal/model"
)

// Rule is the suppression hook. The weekly-dip rule is a placeholder policy;
// richer rules (e.g. matching an operator-curated benign-pattern store) plug
// in here without touching the anomaly schema.
type Rule interface {
	Name() string
	Match(a model.Anomaly) (reason string, ok bool)
}

// WeeklyDipRule suppresses volume drops that land on the designated weekly
// low-traffic day.
type WeeklyDipRule struct {
	Weekday int
}

func (r WeeklyDipRule) Name() string { return "weekly_dip" }

func (r WeeklyDipRule) Match(a model.Anomaly) (string, bool) {
	if !strings.Contains(string(a.Type), "Drop") {
		return "", false
	}
	date, ok := a.ParsedDate()
	if !ok {
		return "", false
	}
	if int(date.Weekday()) != r.Weekday {
		return "", false
	}
	return "Historical Pattern: Weekly Dip (Benign)", true
}

// AnyWeekday marks a benign pattern as applying on every day of the week.
const AnyWeekday = -1

// BenignHistoryRule suppresses anomalies matching rows of the persisted
// benign-pattern table (resolved-benign history).
type BenignHistoryRule struct {
	Patterns []model.BenignPattern
}

func (r BenignHistoryRule) Name() string { return "benign_history" }

func (r BenignHistoryRule) Match(a model.Anomaly) (string, bool) {
	for _, p := range r.Patterns {
		if p.Type != a.Type {
			continue
		}
		if p.Region != "" && p.Region != a.Region {
			continue
		}
		if p.Weekday != AnyWeekday {
			date, ok := a.ParsedDate()
			if !ok || int(date.Weekday()) != p.Weekday {
				continue
			}
		}
		reason := p.Reason
		if reason == "" {
			reason = "Historical Pattern: Resolved Benign"
		}
		return reason, true
	}
	return "", false
}

