package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"govguard/internal/api"
	"govguard/internal/config"
	"govguard/internal/engine"
	"govguard/internal/logging"
	"govguard/internal/model"
	"govguard/internal/report"
	"govguard/internal/source"
	"govguard/internal/storage"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to YAML or JSON config file")
	once := flag.Bool("once", false, "run a single detection pass and exit")
	flag.Parse()

	var cfgManager *config.Manager
	if *configPath != "" {
		m, err := config.NewManager(config.ResolvePath(*configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfgManager = m
	} else {
		cfgManager = config.Static(config.DefaultConfig())
	}
	cfg := cfgManager.Get()
	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("govguard starting", "version", version, "config", cfgManager.Path())

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage open failed", "err", err)
		os.Exit(1)
	}
	if store != nil {
		if err := store.Init(context.Background()); err != nil {
			logger.Error("storage init failed", "err", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	reports := report.NewStore(cfg.Report.HistoryLimit)
	eng := engine.New(cfgManager, logger, store, reports)
	eng.LoadBenignPatterns(context.Background())

	if *once {
		rep, err := eng.RunOnce(context.Background())
		if err != nil {
			if errors.Is(err, model.ErrMissingRequiredInput) {
				logger.Error("required input missing", "err", err)
			} else {
				logger.Error("run failed", "err", err)
			}
			os.Exit(1)
		}
		logger.Info("single run finished", "run_id", rep.RunID, "total", rep.Summary.TotalAnomalies)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := source.NewFeed()
	eng.AttachFeed(feed)
	source.StartKafka(ctx, cfg.Sources.Kafka, feed, logger)
	api.Start(ctx, cfgManager, reports, eng, logger, version)

	if cfgManager.Path() != "" {
		go cfgManager.Watch(3*time.Second,
			func(next *config.Config) {
				logger.Info("config reloaded", "log_level", next.LogLevel)
			},
			func(err error) {
				logger.Warn("config reload failed", "err", err)
			},
			ctx.Done(),
		)
	}

	runAndLog := func() {
		if _, err := eng.RunOnce(ctx); err != nil {
			logger.Error("scheduled run failed", "err", err)
		}
	}
	if _, err := eng.RunOnce(ctx); err != nil {
		if errors.Is(err, model.ErrMissingRequiredInput) {
			logger.Error("required input missing", "err", err)
			os.Exit(1)
		}
		logger.Error("initial run failed", "err", err)
	}

	interval := cfg.Run.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runAndLog()
		case <-ctx.Done():
			logger.Info("govguard stopping")
			return
		}
	}
}
