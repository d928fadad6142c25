package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_level: debug
detection:
  zscore_threshold: 2.0
  zscore_critical_threshold: 2.8
sources:
  monthly_aggregate_path: /data/monthly.csv
api:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level: %s", cfg.LogLevel)
	}
	if cfg.Detection.ZScoreThreshold != 2.0 || cfg.Detection.ZScoreCriticalThreshold != 2.8 {
		t.Fatalf("thresholds: %+v", cfg.Detection)
	}
	if cfg.Sources.MonthlyAggregatePath != "/data/monthly.csv" {
		t.Fatalf("source path: %s", cfg.Sources.MonthlyAggregatePath)
	}
	if cfg.API.Enabled {
		t.Fatalf("api should be disabled")
	}
	// Untouched sections keep defaults.
	if cfg.ML.Seed != 42 || cfg.Correlation.WeeklyDipWeekday != 0 {
		t.Fatalf("defaults lost: %+v", cfg.ML)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"log_level":"warn","ml":{"contamination":0.1}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.ML.Contamination != 0.1 {
		t.Fatalf("json decode: %+v", cfg)
	}
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
detection:
  zscore_threshold: 3.5
  zscore_critical_threshold: 3.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("inverted thresholds accepted")
	}
}

func TestValidateKafkaRequiresBrokers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources.Kafka.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatalf("kafka without brokers accepted")
	}
	cfg.Sources.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Sources.Kafka.Topic = "region-daily"
	cfg.Sources.Kafka.GroupID = "govguard"
	if err := Validate(cfg); err != nil {
		t.Fatalf("valid kafka rejected: %v", err)
	}
}

func TestValidateContaminationBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ML.Contamination = 0.6
	if err := Validate(cfg); err == nil {
		t.Fatalf("contamination 0.6 accepted")
	}
}

func TestManagerStatic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	m := Static(cfg)
	if m.Get().LogLevel != "debug" {
		t.Fatalf("static manager lost config")
	}
	needs, err := m.NeedsReload()
	if err != nil || needs {
		t.Fatalf("pathless manager wants reload: %v %v", needs, err)
	}
}

func TestManagerReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	cfg, err := m.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("reload kept old config: %s", cfg.LogLevel)
	}
}
