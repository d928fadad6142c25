// Package api exposes the read-only report surface plus a small admin
// endpoint to trigger an on-demand run.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"govguard/internal/config"
	"govguard/internal/model"
	"govguard/internal/report"
)

// Runner triggers a detection run outside the periodic schedule.
type Runner interface {
	RunOnce(ctx context.Context) (*model.Report, error)
}

type Server struct {
	cfg     *config.Manager
	reports *report.Store
	runner  Runner
	logger  *slog.Logger
	version string
}

type statusResponse struct {
	Status     string          `json:"status"`
	Time       string          `json:"time"`
	Version    string          `json:"version"`
	ConfigPath string          `json:"config_path"`
	API        apiStatus       `json:"api"`
	Detection  detectionStatus `json:"detection"`
	LastRun    *lastRunStatus  `json:"last_run,omitempty"`
}

type apiStatus struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type detectionStatus struct {
	ZScoreThreshold float64 `json:"zscore_threshold"`
	MinSources      int     `json:"confirmation_min_sources"`
	WeeklyDip       bool    `json:"weekly_dip_suppression"`
}

type lastRunStatus struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total_anomalies"`
}

func Start(ctx context.Context, cfg *config.Manager, reports *report.Store, runner Runner, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:     cfg,
		reports: reports,
		runner:  runner,
		logger:  logger,
		version: version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/report", server.handleReport)
	mux.HandleFunc("/report/summary", server.handleSummary)
	mux.HandleFunc("/reports", server.handleHistory)
	mux.HandleFunc("/anomalies", server.handleAnomalies)
	mux.HandleFunc("/admin/run", server.handleRun)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		API:        apiStatus{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
		Detection: detectionStatus{
			ZScoreThreshold: cfg.Detection.ZScoreThreshold,
			MinSources:      cfg.ML.MinSources,
			WeeklyDip:       cfg.Correlation.WeeklyDipEnabled,
		},
	}
	if latest := s.reports.Latest(); latest != nil {
		resp.LastRun = &lastRunStatus{
			RunID:       latest.RunID,
			GeneratedAt: latest.GeneratedAt,
			Total:       latest.Summary.TotalAnomalies,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	latest := s.reports.Latest()
	if latest == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	latest := s.reports.Latest()
	if latest == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":       latest.RunID,
		"generated_at": latest.GeneratedAt,
		"summary":      latest.Summary,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	list := s.reports.List(limit)
	summaries := make([]map[string]any, 0, len(list))
	for _, rep := range list {
		summaries = append(summaries, map[string]any{
			"run_id":       rep.RunID,
			"generated_at": rep.GeneratedAt,
			"summary":      rep.Summary,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": summaries,
		"count":   len(summaries),
	})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	latest := s.reports.Latest()
	if latest == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	categories := latest.Categories()
	category := r.URL.Query().Get("category")
	suppressed := r.URL.Query().Get("suppressed") == "true"
	if suppressed {
		// suppressed=true is shorthand for category=suppressed.
		if category != "" && category != "suppressed" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		category = "suppressed"
	}
	var list []model.Anomaly
	if category != "" {
		selected, ok := categories[category]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = selected
	} else {
		for _, c := range []string{"temporal", "state", "center", "retry", "seasonal", "peer_lag", "ml_confirmed", "ml_potential"} {
			list = append(list, categories[c]...)
		}
	}
	if list == nil {
		list = []model.Anomaly{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":    latest.RunID,
		"anomalies": list,
		"count":     len(list),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.runner == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	rep, err := s.runner.RunOnce(r.Context())
	if err != nil {
		if s.logger != nil {
			s.logger.Error("on-demand run failed", "err", err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"run_id":  rep.RunID,
		"summary": rep.Summary,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
