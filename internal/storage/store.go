package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"govguard/internal/config"
	"govguard/internal/model"
)

type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveReport(ctx context.Context, report *model.Report) error
	LoadBenignPatterns(ctx context.Context) ([]model.BenignPattern, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) saveReport(ctx context.Context, report *model.Report, placeholder func(int) string) error {
	if b.db == nil || report == nil {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	insertReport := `INSERT INTO reports (run_id, generated_at, summary_json) VALUES (` +
		placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `)`
	if _, err := tx.ExecContext(ctx, insertReport,
		report.RunID,
		report.GeneratedAt.UTC(),
		encodeJSON(report.Summary),
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	insertAnomaly := `INSERT INTO anomalies (run_id, category, anomaly_type, severity, metric, region, center_id, signature, suppressed, payload_json)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` +
		placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `, ` + placeholder(8) + `, ` +
		placeholder(9) + `, ` + placeholder(10) + `)`
	stmt, err := tx.PrepareContext(ctx, insertAnomaly)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for category, list := range report.Categories() {
		for _, a := range list {
			if _, err := stmt.ExecContext(ctx,
				report.RunID,
				category,
				string(a.Type),
				string(a.Severity),
				a.Metric,
				a.Region,
				a.CenterID,
				a.ComplianceSignature,
				a.IsSuppressed,
				encodeJSON(a),
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

func (b *baseStore) loadBenignPatterns(ctx context.Context) ([]model.BenignPattern, error) {
	if b.db == nil {
		return nil, nil
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT anomaly_type, region, weekday, reason FROM benign_patterns`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BenignPattern
	for rows.Next() {
		var p model.BenignPattern
		var typ string
		if err := rows.Scan(&typ, &p.Region, &p.Weekday, &p.Reason); err != nil {
			return nil, err
		}
		p.Type = model.AnomalyType(typ)
		out = append(out, p)
	}
	return out, rows.Err()
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}
