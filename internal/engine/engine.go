// Package engine orchestrates one detection run: fan out the detector banks
// over an input snapshot, confirm overlapping machine-learning signals,
// correlate and suppress, then assemble the report.
package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"govguard/internal/confirm"
	"govguard/internal/config"
	"govguard/internal/correlate"
	"govguard/internal/detect"
	"govguard/internal/ml"
	"govguard/internal/model"
	"govguard/internal/report"
	"govguard/internal/source"
	"govguard/internal/storage"
)

// Confirmation source names, stable across runs so detected_by stays
// comparable between reports.
const (
	sourceSeasonal    = "statistical_seasonal"
	sourceIsolation   = "isolation_forest"
	sourceCluster     = "zscore_cluster"
	sourceChangepoint = "changepoint"
)

type Engine struct {
	cfg     *config.Manager
	logger  *slog.Logger
	store   storage.Store
	reports *report.Store
	benign  []model.BenignPattern
	feed    *source.Feed
}

func New(cfg *config.Manager, logger *slog.Logger, store storage.Store, reports *report.Store) *Engine {
	return &Engine{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		reports: reports,
	}
}

// LoadBenignPatterns pulls the operator-maintained suppression history from
// storage. Failure is non-fatal: the built-in weekly dip rule still applies.
func (e *Engine) LoadBenignPatterns(ctx context.Context) {
	if e.store == nil {
		return
	}
	patterns, err := e.store.LoadBenignPatterns(ctx)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("benign pattern load failed", "err", err)
		}
		return
	}
	e.benign = patterns
	if e.logger != nil && len(patterns) > 0 {
		e.logger.Info("benign patterns loaded", "count", len(patterns))
	}
}

// AttachFeed wires the streaming region feed into future runs.
func (e *Engine) AttachFeed(feed *source.Feed) {
	e.feed = feed
}

// RunOnce reloads the configured input tables, folds in any streamed region
// records, and executes one detection pass.
func (e *Engine) RunOnce(ctx context.Context) (*model.Report, error) {
	cfg := e.cfg.Get()
	snap, err := source.Load(cfg.Sources, e.logger)
	if err != nil {
		return nil, err
	}
	if e.feed != nil {
		snap.MergeRegions(e.feed.Snapshot())
	}
	return e.Run(ctx, snap)
}

// detectorOutput holds the raw per-bank results of the parallel stage.
type detectorOutput struct {
	temporal   []model.Anomaly
	seasonal   []model.Anomaly
	state      []model.Anomaly
	center     []model.Anomaly
	retry      []model.Anomaly
	peer       []model.Anomaly
	isolation  []model.Anomaly
	cluster    []model.Anomaly
	regimeBrks []model.Anomaly
}

// Run executes one full detection pass over the snapshot and returns the
// assembled report. Detector banks run concurrently and independently: a
// panicking detector loses only its own findings.
func (e *Engine) Run(ctx context.Context, snap *source.Snapshot) (*model.Report, error) {
	cfg := e.cfg.Get()
	started := time.Now()

	var out detectorOutput
	var g errgroup.Group

	// ZScore feeds the rolling detector's suppression set, so the pair
	// shares one goroutine.
	g.Go(e.guard("temporal", func() {
		z := detect.ZScore(snap.Monthly, cfg.Detection)
		r := detect.RollingDeviation(snap.Monthly, cfg.Detection, detect.FlaggedSet(z))
		out.temporal = append(z, r...)
	}))
	g.Go(e.guard("seasonal", func() {
		out.seasonal = detect.SeasonalBounds(snap.Regions, cfg.Detection)
	}))
	g.Go(e.guard("state", func() {
		out.state = detect.StateLevel(snap.States, cfg.Detection)
	}))
	g.Go(e.guard("center", func() {
		out.center = detect.CenterOps(snap.Centers, cfg.Detection)
	}))
	g.Go(e.guard("retry", func() {
		out.retry = detect.AuthRetry(snap.Retries, cfg.Detection)
	}))
	g.Go(e.guard("peer", func() {
		out.peer = detect.PeerLag(snap.Benchmarks)
	}))
	g.Go(e.guard("isolation_forest", func() {
		out.isolation = ml.IsolationOutliers(snap.Regions, cfg.ML)
	}))
	g.Go(e.guard("cluster", func() {
		out.cluster = ml.ClusterOutliers(snap.Regions, cfg.ML)
	}))
	g.Go(e.guard("changepoint", func() {
		out.regimeBrks = ml.ChangePoints(snap.Regions, cfg.ML)
	}))
	_ = g.Wait()

	confirmed := confirm.Confirm(map[string][]model.Anomaly{
		sourceSeasonal:    out.seasonal,
		sourceIsolation:   out.isolation,
		sourceCluster:     out.cluster,
		sourceChangepoint: out.regimeBrks,
	}, cfg.ML.MinSources)

	cats := e.correlated(cfg, out, confirmed)
	rep := report.Assemble(cfg.Report, cats)
	e.reports.Add(rep)

	if e.store != nil {
		if err := e.store.SaveReport(ctx, rep); err != nil && e.logger != nil {
			e.logger.Warn("report persist failed", "run_id", rep.RunID, "err", err)
		}
	}
	if e.logger != nil {
		e.logger.Info("run complete",
			"run_id", rep.RunID,
			"total", rep.Summary.TotalAnomalies,
			"critical", rep.Summary.CriticalCount,
			"confirmed", rep.Summary.ConfirmedCount,
			"suppressed", rep.Summary.SuppressedML,
			"elapsed", time.Since(started).Round(time.Millisecond),
		)
	}
	return rep, nil
}

// correlated runs the correlation engine once over the union of every live
// category, then slices the enriched results back into their categories so
// temporal clustering and geographic shares see the whole run.
func (e *Engine) correlated(cfg *config.Config, out detectorOutput, confirmed confirm.Result) report.Categories {
	lists := [][]model.Anomaly{
		out.temporal,
		out.state,
		out.center,
		out.retry,
		out.seasonal,
		out.peer,
		confirmed.Confirmed,
	}
	var union []model.Anomaly
	offsets := make([]int, len(lists)+1)
	for i, list := range lists {
		union = append(union, list...)
		offsets[i+1] = offsets[i] + len(list)
	}

	rules := []correlate.Rule{}
	if cfg.Correlation.WeeklyDipEnabled {
		rules = append(rules, correlate.WeeklyDipRule{Weekday: cfg.Correlation.WeeklyDipWeekday})
	}
	if len(e.benign) > 0 {
		rules = append(rules, correlate.BenignHistoryRule{Patterns: e.benign})
	}
	enriched := correlate.New(cfg.Correlation, rules...).Enrich(union)

	cut := func(i int) []model.Anomaly { return enriched[offsets[i]:offsets[i+1]] }
	return report.Categories{
		Temporal:    cut(0),
		State:       cut(1),
		Center:      cut(2),
		Retry:       cut(3),
		Seasonal:    cut(4),
		PeerLag:     cut(5),
		MLConfirmed: cut(6),
		MLPotential: confirmed.Potential,
	}
}

// guard wraps a detector so a panic is logged and contained instead of
// taking down the run.
func (e *Engine) guard(name string, fn func()) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil && e.logger != nil {
				e.logger.Error("detector panicked", "detector", name, "panic", r)
			}
		}()
		fn()
		return nil
	}
}
