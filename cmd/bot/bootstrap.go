package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/SHKSHBZ/AlgoTrader/internal/broker/brokerobs"
	"github.com/SHKSHBZ/AlgoTrader/internal/broker/paper"
	"github.com/SHKSHBZ/AlgoTrader/internal/engine"
	"github.com/SHKSHBZ/AlgoTrader/internal/engine/engineobs"
	"github.com/SHKSHBZ/AlgoTrader/internal/interfaces"
	"github.com/SHKSHBZ/AlgoTrader/internal/ledger"
	"github.com/SHKSHBZ/AlgoTrader/internal/logger"
	"github.com/SHKSHBZ/AlgoTrader/internal/recorder"
	"github.com/SHKSHBZ/AlgoTrader/internal/store"
	"github.com/SHKSHBZ/AlgoTrader/internal/tradelog"
)

// initializeSystem loads env and initializes the logger/tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("TRADER_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old tradelog files if retention is configured
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeCollaborators builds the market-data source and broker with
// observability middleware. Only the paper collaborators exist today;
// LIVE mode refuses to start rather than silently simulating.
func initializeCollaborators(ctx context.Context, cfg *store.Config) (interfaces.MarketData, interfaces.Broker, error) {
	if cfg.Mode != "DRY_RUN" {
		return nil, nil, fmt.Errorf("mode %s requires a live brokerage integration, none is configured", cfg.Mode)
	}
	logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")

	pb := paper.New(cfg.DataDir, cfg.Execution.SlippagePct)
	return brokerobs.WrapMarketData(pb), brokerobs.Wrap(pb), nil
}

func initializeLedger(ctx context.Context, cfg *store.Config) (*ledger.Ledger, error) {
	led, err := ledger.Open(cfg.Portfolio.LedgerPath, cfg.Portfolio.InitialCapital, cfg.Risk.MaxPositions)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open portfolio ledger", err, "path", cfg.Portfolio.LedgerPath)
		return nil, err
	}
	snap := led.Snapshot()
	logger.Info(ctx, "Portfolio ledger loaded",
		"path", cfg.Portfolio.LedgerPath,
		"capital", snap.Capital,
		"open_positions", len(snap.Positions),
		"total_trades", snap.TotalTrades,
	)
	return led, nil
}

func initializeRecorder(ctx context.Context, cfg *store.Config) recorder.Recorder {
	if cfg.Portfolio.HistoryDBPath == "" {
		return recorder.Noop{}
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Portfolio.HistoryDBPath)
	if err != nil {
		logger.Warn(ctx, "History recorder unavailable, continuing without it", "error", err)
		return recorder.Noop{}
	}
	logger.Info(ctx, "History recorder opened", "path", cfg.Portfolio.HistoryDBPath)
	return rec
}

// initializeEngine builds the trading engine with observability middleware.
// The concrete engine is returned too so shutdown can flatten positions.
func initializeEngine(cfg *store.Config, data interfaces.MarketData, brk interfaces.Broker, led *ledger.Ledger, rec recorder.Recorder) (interfaces.Engine, *engine.Engine) {
	eng := engine.New(cfg, data, brk, led, rec)
	return engineobs.Wrap(eng), eng
}
