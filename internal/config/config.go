package config

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel    string            `json:"log_level" yaml:"log_level"`
	Sources     SourcesConfig     `json:"sources" yaml:"sources"`
	Detection   DetectionConfig   `json:"detection" yaml:"detection"`
	ML          MLConfig          `json:"ml" yaml:"ml"`
	Correlation CorrelationConfig `json:"correlation" yaml:"correlation"`
	Report      ReportConfig      `json:"report" yaml:"report"`
	API         APIConfig         `json:"api" yaml:"api"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Run         RunConfig         `json:"run" yaml:"run"`
}

type SourcesConfig struct {
	MonthlyAggregatePath string      `json:"monthly_aggregate_path" yaml:"monthly_aggregate_path"`
	StateFeaturesPath    string      `json:"state_features_path" yaml:"state_features_path"`
	RegionUpdatesPath    string      `json:"region_updates_path" yaml:"region_updates_path"`
	CenterOpsPath        string      `json:"center_ops_path" yaml:"center_ops_path"`
	AuthRetriesPath      string      `json:"auth_retries_path" yaml:"auth_retries_path"`
	PeerBenchmarksPath   string      `json:"peer_benchmarks_path" yaml:"peer_benchmarks_path"`
	Kafka                KafkaConfig `json:"kafka" yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

type DetectionConfig struct {
	ZScoreThreshold         float64 `json:"zscore_threshold" yaml:"zscore_threshold"`
	ZScoreCriticalThreshold float64 `json:"zscore_critical_threshold" yaml:"zscore_critical_threshold"`
	RollingWindow           int     `json:"rolling_window" yaml:"rolling_window"`
	RollingThreshold        float64 `json:"rolling_threshold" yaml:"rolling_threshold"`
	SeasonalStdMultiple     float64 `json:"seasonal_std_multiple" yaml:"seasonal_std_multiple"`
	BioRatioStdMultiple     float64 `json:"bio_ratio_std_multiple" yaml:"bio_ratio_std_multiple"`
	VolatilityStdMultiple   float64 `json:"volatility_std_multiple" yaml:"volatility_std_multiple"`
	MinProcessingTimeMin    float64 `json:"min_processing_time_min" yaml:"min_processing_time_min"`
	MaxBioErrorRatePct      float64 `json:"max_bio_error_rate_pct" yaml:"max_bio_error_rate_pct"`
	RetryBurstRatio         float64 `json:"retry_burst_ratio" yaml:"retry_burst_ratio"`
}

type MLConfig struct {
	Contamination    float64 `json:"contamination" yaml:"contamination"`
	Seed             int64   `json:"seed" yaml:"seed"`
	ForestTrees      int     `json:"forest_trees" yaml:"forest_trees"`
	ForestSampleSize int     `json:"forest_sample_size" yaml:"forest_sample_size"`
	ClusterEps       float64 `json:"cluster_eps" yaml:"cluster_eps"`
	ClusterMinPoints int     `json:"cluster_min_points" yaml:"cluster_min_points"`
	ClusterZLimit    float64 `json:"cluster_z_limit" yaml:"cluster_z_limit"`
	ChangePenalty    float64 `json:"change_penalty" yaml:"change_penalty"`
	ChangeMinSegment int     `json:"change_min_segment" yaml:"change_min_segment"`
	ChangeMinHistory int     `json:"change_min_history" yaml:"change_min_history"`
	MinSources       int     `json:"min_sources" yaml:"min_sources"`
}

type CorrelationConfig struct {
	WindowDays        int     `json:"window_days" yaml:"window_days"`
	ClusterMinSize    int     `json:"cluster_min_size" yaml:"cluster_min_size"`
	HotspotBoostShare float64 `json:"hotspot_boost_share" yaml:"hotspot_boost_share"`
	OffenderMinCount  int     `json:"offender_min_count" yaml:"offender_min_count"`
	WeeklyDipWeekday  int     `json:"weekly_dip_weekday" yaml:"weekly_dip_weekday"`
	WeeklyDipEnabled  bool    `json:"weekly_dip_enabled" yaml:"weekly_dip_enabled"`
}

type ReportConfig struct {
	PolicyVersion string `json:"policy_version" yaml:"policy_version"`
	HistoryLimit  int    `json:"history_limit" yaml:"history_limit"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type RunConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Sources: SourcesConfig{
			Kafka: KafkaConfig{Enabled: false},
		},
		Detection: DetectionConfig{
			ZScoreThreshold:         2.5,
			ZScoreCriticalThreshold: 3.0,
			RollingWindow:           3,
			RollingThreshold:        1.5,
			SeasonalStdMultiple:     2.5,
			BioRatioStdMultiple:     1.5,
			VolatilityStdMultiple:   2.0,
			MinProcessingTimeMin:    8.0,
			MaxBioErrorRatePct:      4.0,
			RetryBurstRatio:         0.15,
		},
		ML: MLConfig{
			Contamination:    0.05,
			Seed:             42,
			ForestTrees:      100,
			ForestSampleSize: 256,
			ClusterEps:       1.5,
			ClusterMinPoints: 3,
			ClusterZLimit:    3.0,
			ChangePenalty:    10,
			ChangeMinSegment: 5,
			ChangeMinHistory: 10,
			MinSources:       2,
		},
		Correlation: CorrelationConfig{
			WindowDays:        1,
			ClusterMinSize:    3,
			HotspotBoostShare: 0.3,
			OffenderMinCount:  2,
			WeeklyDipWeekday:  int(time.Sunday),
			WeeklyDipEnabled:  true,
		},
		Report:  ReportConfig{PolicyVersion: "v1.4", HistoryLimit: 20},
		API:     APIConfig{Enabled: true, Addr: ":8081"},
		Storage: StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:govguard.db?_pragma=busy_timeout(5000)"},
		Run:     RunConfig{Interval: 0},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Detection.RollingWindow <= 0 {
		cfg.Detection.RollingWindow = def.Detection.RollingWindow
	}
	if cfg.ML.ForestTrees <= 0 {
		cfg.ML.ForestTrees = def.ML.ForestTrees
	}
	if cfg.ML.ForestSampleSize <= 0 {
		cfg.ML.ForestSampleSize = def.ML.ForestSampleSize
	}
	if cfg.ML.MinSources <= 0 {
		cfg.ML.MinSources = def.ML.MinSources
	}
	if cfg.ML.ChangeMinHistory <= 0 {
		cfg.ML.ChangeMinHistory = def.ML.ChangeMinHistory
	}
	if cfg.Correlation.WindowDays <= 0 {
		cfg.Correlation.WindowDays = def.Correlation.WindowDays
	}
	if cfg.Correlation.ClusterMinSize <= 0 {
		cfg.Correlation.ClusterMinSize = def.Correlation.ClusterMinSize
	}
	if cfg.Correlation.OffenderMinCount <= 0 {
		cfg.Correlation.OffenderMinCount = def.Correlation.OffenderMinCount
	}
	if cfg.Report.PolicyVersion == "" {
		cfg.Report.PolicyVersion = def.Report.PolicyVersion
	}
	if cfg.Report.HistoryLimit <= 0 {
		cfg.Report.HistoryLimit = def.Report.HistoryLimit
	}
}

// Validate is the run's configuration-error gate: an invalid threshold or
// window fails the run before any detector starts.
func Validate(cfg *Config) error {
	if cfg.Detection.ZScoreThreshold <= 0 {
		return errors.New("detection.zscore_threshold must be > 0")
	}
	if cfg.Detection.ZScoreCriticalThreshold < cfg.Detection.ZScoreThreshold {
		return errors.New("detection.zscore_critical_threshold must be >= detection.zscore_threshold")
	}
	if cfg.Detection.RollingWindow < 2 {
		return errors.New("detection.rolling_window must be >= 2")
	}
	if cfg.Detection.RollingThreshold <= 0 {
		return errors.New("detection.rolling_threshold must be > 0")
	}
	if cfg.Detection.SeasonalStdMultiple <= 0 {
		return errors.New("detection.seasonal_std_multiple must be > 0")
	}
	if cfg.Detection.RetryBurstRatio <= 0 || cfg.Detection.RetryBurstRatio >= 1 {
		return errors.New("detection.retry_burst_ratio must be in (0, 1)")
	}
	if cfg.ML.Contamination <= 0 || cfg.ML.Contamination >= 0.5 {
		return errors.New("ml.contamination must be in (0, 0.5)")
	}
	if cfg.ML.ClusterEps <= 0 {
		return errors.New("ml.cluster_eps must be > 0")
	}
	if cfg.ML.ClusterMinPoints < 2 {
		return errors.New("ml.cluster_min_points must be >= 2")
	}
	if cfg.ML.ChangePenalty <= 0 {
		return errors.New("ml.change_penalty must be > 0")
	}
	if cfg.ML.ChangeMinSegment < 2 {
		return errors.New("ml.change_min_segment must be >= 2")
	}
	if cfg.ML.MinSources < 2 {
		return errors.New("ml.min_sources must be >= 2")
	}
	if cfg.Correlation.WeeklyDipWeekday < 0 || cfg.Correlation.WeeklyDipWeekday > 6 {
		return errors.New("correlation.weekly_dip_weekday must be in [0, 6]")
	}
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Storage.Enabled && cfg.Storage.Driver == "" {
		return errors.New("storage.driver required when storage.enabled is true")
	}
	if cfg.Sources.Kafka.Enabled {
		k := cfg.Sources.Kafka
		if len(k.Brokers) == 0 || k.Topic == "" || k.GroupID == "" {
			return errors.New("sources.kafka requires brokers, topic, group_id")
		}
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	if info, err := os.Stat(path); err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// Static wraps an in-memory config in a Manager, for callers without a file.
func Static(cfg *Config) *Manager {
	m := &Manager{}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
