package source

import (
	"sync"

	"govguard/internal/model"
)

// Feed accumulates region-daily records arriving outside the CSV snapshots.
// A (date, region) pair is accepted once; later duplicates are dropped.
type Feed struct {
	mu   sync.Mutex
	seen map[string]struct{}
	rows model.RegionSeries
}

func NewFeed() *Feed {
	return &Feed{seen: make(map[string]struct{})}
}

// Append adds a record, reporting whether it was new.
func (f *Feed) Append(rec model.RegionRecord) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := regionKey(rec)
	if _, dup := f.seen[key]; dup {
		return false
	}
	f.seen[key] = struct{}{}
	f.rows = append(f.rows, rec)
	return true
}

// Snapshot copies the accumulated rows for use in a run.
func (f *Feed) Snapshot() model.RegionSeries {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(model.RegionSeries, len(f.rows))
	copy(out, f.rows)
	return out
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}
