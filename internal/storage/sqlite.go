package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"govguard/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:govguard.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			generated_at TEXT NOT NULL,
			summary_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_generated ON reports(generated_at)`,
		`CREATE TABLE IF NOT EXISTS anomalies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			category TEXT NOT NULL,
			anomaly_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			metric TEXT,
			region TEXT,
			center_id TEXT,
			signature TEXT NOT NULL,
			suppressed INTEGER NOT NULL,
			payload_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_run ON anomalies(run_id)`,
		`CREATE TABLE IF NOT EXISTS benign_patterns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			anomaly_type TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			weekday INTEGER NOT NULL DEFAULT -1,
			reason TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveReport(ctx context.Context, report *model.Report) error {
	return s.saveReport(ctx, report, func(int) string { return "?" })
}

func (s *sqliteStore) LoadBenignPatterns(ctx context.Context) ([]model.BenignPattern, error) {
	return s.loadBenignPatterns(ctx)
}
