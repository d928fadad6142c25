package report

import (
	"sync"

	"govguard/internal/model"
)

// Store is a bounded in-memory history of recent reports, newest last.
type Store struct {
	mu    sync.RWMutex
	buf   []*model.Report
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 20
	}
	return &Store{limit: limit}
}

func (s *Store) Add(r *model.Report) {
	if r == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, r)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = r
}

func (s *Store) Latest() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.buf) == 0 {
		return nil
	}
	return s.buf[len(s.buf)-1]
}

func (s *Store) List(limit int) []*model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]*model.Report, 0, limit)
	for i := len(s.buf) - limit; i < len(s.buf); i++ {
		out = append(out, s.buf[i])
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
