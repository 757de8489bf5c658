package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SHKSHBZ/AlgoTrader/internal/logger"
	"github.com/SHKSHBZ/AlgoTrader/internal/metrics"
	"github.com/SHKSHBZ/AlgoTrader/internal/scheduler"
)

func main() {
	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	compressOldLogs(ctx)

	data, brk, err := initializeCollaborators(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize collaborators", err)
		os.Exit(1)
	}

	led, err := initializeLedger(ctx, cfg)
	if err != nil {
		os.Exit(1)
	}

	rec := initializeRecorder(ctx, cfg)
	defer rec.Close()

	eng, core := initializeEngine(cfg, data, brk, led, rec)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.ErrorWithErr(ctx, "Metrics server failed", err, "addr", cfg.Metrics.Addr)
			}
		}()
		logger.Info(ctx, "Metrics endpoint enabled", "addr", cfg.Metrics.Addr)
	}

	sched := scheduler.New(ctx, eng, cfg.Watchlist)
	if err := sched.Register(cfg.CycleCron); err != nil {
		logger.ErrorWithErr(ctx, "Failed to register scheduler tasks", err)
		os.Exit(1)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	logger.Info(ctx, "Bot started", "watchlist", len(cfg.Watchlist), "cycle_cron", cfg.CycleCron)
	sched.Start()
	sched.RunOnce()

	<-sigc
	logger.Info(ctx, "Shutting down...")
	sched.Stop()

	if cfg.Portfolio.FlattenOnExit {
		if err := core.FlattenAll(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Session-end flattening incomplete", err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = logger.Shutdown(shutdownCtx)
}
