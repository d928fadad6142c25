package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"govguard/internal/config"
	"govguard/internal/model"
	"govguard/internal/report"
)

type stubRunner struct {
	report *model.Report
	err    error
}

func (s *stubRunner) RunOnce(ctx context.Context) (*model.Report, error) {
	return s.report, s.err
}

func newServerForTest(reports *report.Store, runner Runner) *Server {
	return &Server{
		cfg:     config.Static(config.DefaultConfig()),
		reports: reports,
		runner:  runner,
		version: "test",
	}
}

func seedReport() *model.Report {
	return &model.Report{
		RunID: "run-1",
		TemporalAnomalies: []model.Anomaly{
			{Type: model.TypeSpike, Severity: model.SeverityCritical, ComplianceSignature: "ABCD"},
		},
		Suppressed: []model.Anomaly{
			{Type: model.TypeDrop, Severity: model.SeverityMedium, IsSuppressed: true, ComplianceSignature: "EF01"},
		},
		Summary: model.Summary{TotalAnomalies: 1, CriticalCount: 1, SuppressedML: 1},
	}
}

func TestStatusEndpoint(t *testing.T) {
	reports := report.NewStore(5)
	reports.Add(seedReport())
	srv := newServerForTest(reports, nil)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "test" {
		t.Fatalf("response: %+v", resp)
	}
	if resp.LastRun == nil || resp.LastRun.RunID != "run-1" {
		t.Fatalf("last run: %+v", resp.LastRun)
	}
}

func TestReportEndpointEmptyHistory(t *testing.T) {
	srv := newServerForTest(report.NewStore(5), nil)
	rec := httptest.NewRecorder()
	srv.handleReport(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code: %d", rec.Code)
	}
}

func TestAnomaliesFilterByCategory(t *testing.T) {
	reports := report.NewStore(5)
	reports.Add(seedReport())
	srv := newServerForTest(reports, nil)

	rec := httptest.NewRecorder()
	srv.handleAnomalies(rec, httptest.NewRequest(http.MethodGet, "/anomalies?category=temporal", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code: %d", rec.Code)
	}
	var resp struct {
		Anomalies []model.Anomaly `json:"anomalies"`
		Count     int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Anomalies[0].Type != model.TypeSpike {
		t.Fatalf("response: %+v", resp)
	}

	rec = httptest.NewRecorder()
	srv.handleAnomalies(rec, httptest.NewRequest(http.MethodGet, "/anomalies?category=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown category code: %d", rec.Code)
	}
}

func TestAnomaliesSuppressedView(t *testing.T) {
	reports := report.NewStore(5)
	reports.Add(seedReport())
	srv := newServerForTest(reports, nil)

	rec := httptest.NewRecorder()
	srv.handleAnomalies(rec, httptest.NewRequest(http.MethodGet, "/anomalies?suppressed=true", nil))
	var resp struct {
		Anomalies []model.Anomaly `json:"anomalies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Anomalies) != 1 || !resp.Anomalies[0].IsSuppressed {
		t.Fatalf("suppressed view: %+v", resp.Anomalies)
	}

	rec = httptest.NewRecorder()
	srv.handleAnomalies(rec, httptest.NewRequest(http.MethodGet, "/anomalies?category=temporal&suppressed=true", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("conflicting filters accepted: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.handleAnomalies(rec, httptest.NewRequest(http.MethodGet, "/anomalies?category=suppressed&suppressed=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("matching suppressed filters rejected: %d", rec.Code)
	}
}

func TestAdminRunTriggersRunner(t *testing.T) {
	rep := seedReport()
	srv := newServerForTest(report.NewStore(5), &stubRunner{report: rep})

	rec := httptest.NewRecorder()
	srv.handleRun(rec, httptest.NewRequest(http.MethodPost, "/admin/run", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code: %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["run_id"] != "run-1" {
		t.Fatalf("run id: %v", resp["run_id"])
	}

	rec = httptest.NewRecorder()
	srv.handleRun(rec, httptest.NewRequest(http.MethodGet, "/admin/run", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET allowed on admin run: %d", rec.Code)
	}
}
