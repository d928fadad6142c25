package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"govguard/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/govguard?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL UNIQUE,
			generated_at TIMESTAMPTZ NOT NULL,
			summary_json JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_generated ON reports(generated_at)`,
		`CREATE TABLE IF NOT EXISTS anomalies (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			category TEXT NOT NULL,
			anomaly_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			metric TEXT,
			region TEXT,
			center_id TEXT,
			signature TEXT NOT NULL,
			suppressed BOOLEAN NOT NULL,
			payload_json JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_run ON anomalies(run_id)`,
		`CREATE TABLE IF NOT EXISTS benign_patterns (
			id BIGSERIAL PRIMARY KEY,
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

func (s *postgresStore) SaveReport(ctx context.Context, report *model.Report) error {
	return s.saveReport(ctx, report, func(n int) string { return fmt.Sprintf("$%d", n) })
}

func (s *postgresStore) LoadBenignPatterns(ctx context.Context) ([]model.BenignPattern, error) {
	return s.loadBenignPatterns(ctx)
}
