package store

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

type Config struct {
	Mode      string   `yaml:"mode"` // DRY_RUN or LIVE
	Watchlist []string `yaml:"watchlist"`
	DataDir   string   `yaml:"data_dir"`
	CycleCron string   `yaml:"cycle_cron"`

	Portfolio struct {
		InitialCapital float64 `yaml:"initial_capital"`
		LedgerPath     string  `yaml:"ledger_path"`
		HistoryDBPath  string  `yaml:"history_db_path"`
		FlattenOnExit  bool    `yaml:"flatten_on_exit"`
	} `yaml:"portfolio"`

	Signals struct {
		BuyThreshold      float64 `yaml:"buy_threshold"`
		SellThreshold     float64 `yaml:"sell_threshold"`
		MinVotes          int     `yaml:"min_votes"`
		ADXTrendThreshold float64 `yaml:"adx_trend_threshold"`
	} `yaml:"signals"`

	Regime struct {
		LowVolMaxATRPct  float64 `yaml:"low_vol_max_atr_pct"`
		HighVolMinATRPct float64 `yaml:"high_vol_min_atr_pct"`
		Weights          struct {
			Default types.RegimeWeights `yaml:"default"`
			HighVol types.RegimeWeights `yaml:"high_vol"`
			LowVol  types.RegimeWeights `yaml:"low_vol"`
		} `yaml:"weights"`
	} `yaml:"regime"`

	Risk struct {
		MaxRiskPerTrade      float64 `yaml:"max_risk_per_trade"`
		KellyFraction        float64 `yaml:"kelly_fraction"`
		KellyMinTrades       int     `yaml:"kelly_min_trades"`
		MaxPositions         int     `yaml:"max_positions"`
		MinLot               int     `yaml:"min_lot"`
		MaxEntriesPerCycle   int     `yaml:"max_entries_per_cycle"`
		TakeProfitMultiplier float64 `yaml:"take_profit_multiplier"`
	} `yaml:"risk"`

	TrailingStop struct {
		Enabled           bool    `yaml:"enabled"`
		Percent           float64 `yaml:"percent"`
		ActivationPercent float64 `yaml:"activation_percent"`
	} `yaml:"trailing_stop"`

	Execution struct {
		TransactionCostPct float64 `yaml:"transaction_cost_pct"`
		SlippagePct        float64 `yaml:"slippage_pct"`
		OrderTimeoutSec    int     `yaml:"order_timeout_sec"`
	} `yaml:"execution"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

const weightTolerance = 1e-9

func weightsSumToOne(w types.RegimeWeights) bool {
	return math.Abs(w.Daily+w.H60+w.H15-1.0) <= weightTolerance
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Watchlist) == 0 {
		return errors.New("watchlist cannot be empty")
	}
	if c.Portfolio.InitialCapital <= 0 {
		return fmt.Errorf("portfolio.initial_capital must be positive, got %.2f", c.Portfolio.InitialCapital)
	}
	if c.Signals.SellThreshold >= c.Signals.BuyThreshold {
		return fmt.Errorf("signals.sell_threshold (%.1f) must be below signals.buy_threshold (%.1f)",
			c.Signals.SellThreshold, c.Signals.BuyThreshold)
	}
	if c.Signals.MinVotes < 1 || c.Signals.MinVotes > 3 {
		return fmt.Errorf("signals.min_votes must be between 1-3, got %d", c.Signals.MinVotes)
	}
	if c.Regime.LowVolMaxATRPct <= 0 || c.Regime.HighVolMinATRPct <= c.Regime.LowVolMaxATRPct {
		return fmt.Errorf("regime thresholds must satisfy 0 < low_vol_max_atr_pct < high_vol_min_atr_pct, got %.2f and %.2f",
			c.Regime.LowVolMaxATRPct, c.Regime.HighVolMinATRPct)
	}
	for name, w := range map[string]types.RegimeWeights{
		"default":  c.Regime.Weights.Default,
		"high_vol": c.Regime.Weights.HighVol,
		"low_vol":  c.Regime.Weights.LowVol,
	} {
		if !weightsSumToOne(w) {
			return fmt.Errorf("regime.weights.%s must sum to 1.0, got %.9f", name, w.Daily+w.H60+w.H15)
		}
	}
	if c.Risk.MaxRiskPerTrade <= 0 || c.Risk.MaxRiskPerTrade > 1 {
		return fmt.Errorf("risk.max_risk_per_trade must be in (0,1], got %.4f", c.Risk.MaxRiskPerTrade)
	}
	if c.Risk.KellyFraction <= 0 || c.Risk.KellyFraction > 1 {
		return fmt.Errorf("risk.kelly_fraction must be in (0,1], got %.4f", c.Risk.KellyFraction)
	}
	if c.Risk.MaxPositions < 1 {
		return fmt.Errorf("risk.max_positions must be at least 1, got %d", c.Risk.MaxPositions)
	}
	if c.Risk.TakeProfitMultiplier <= 1 {
		return fmt.Errorf("risk.take_profit_multiplier must exceed 1.0, got %.4f", c.Risk.TakeProfitMultiplier)
	}
	if c.TrailingStop.Enabled {
		if c.TrailingStop.Percent <= 0 || c.TrailingStop.ActivationPercent <= 0 {
			return errors.New("trailing_stop.percent and trailing_stop.activation_percent must be positive when enabled")
		}
	}
	if c.Execution.TransactionCostPct < 0 || c.Execution.SlippagePct < 0 {
		return errors.New("execution.transaction_cost_pct and execution.slippage_pct cannot be negative")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.DataDir == "" {
		c.DataDir = "data_cache"
	}
	if c.CycleCron == "" {
		// Every 15 minutes during market hours, Monday to Friday.
		c.CycleCron = "0 */15 9-15 * * MON-FRI"
	}
	if c.Portfolio.LedgerPath == "" {
		c.Portfolio.LedgerPath = "portfolio.json"
	}
	if c.Signals.BuyThreshold == 0 {
		c.Signals.BuyThreshold = 65
	}
	if c.Signals.SellThreshold == 0 {
		c.Signals.SellThreshold = 35
	}
	if c.Signals.MinVotes == 0 {
		c.Signals.MinVotes = 2
	}
	if c.Signals.ADXTrendThreshold == 0 {
		c.Signals.ADXTrendThreshold = 20
	}
	if c.Regime.LowVolMaxATRPct == 0 {
		c.Regime.LowVolMaxATRPct = 1.5
	}
	if c.Regime.HighVolMinATRPct == 0 {
		c.Regime.HighVolMinATRPct = 3.0
	}
	zero := types.RegimeWeights{}
	if c.Regime.Weights.Default == zero {
		c.Regime.Weights.Default = types.RegimeWeights{Daily: 0.30, H60: 0.40, H15: 0.30}
	}
	if c.Regime.Weights.HighVol == zero {
		c.Regime.Weights.HighVol = types.RegimeWeights{Daily: 0.20, H60: 0.35, H15: 0.45}
	}
	if c.Regime.Weights.LowVol == zero {
		c.Regime.Weights.LowVol = types.RegimeWeights{Daily: 0.40, H60: 0.40, H15: 0.20}
	}
	if c.Risk.MaxRiskPerTrade == 0 {
		c.Risk.MaxRiskPerTrade = 0.015
	}
	if c.Risk.KellyFraction == 0 {
		c.Risk.KellyFraction = 0.35
	}
	if c.Risk.KellyMinTrades == 0 {
		c.Risk.KellyMinTrades = 20
	}
	if c.Risk.MaxPositions == 0 {
		c.Risk.MaxPositions = 20
	}
	if c.Risk.MinLot == 0 {
		c.Risk.MinLot = 1
	}
	if c.Risk.MaxEntriesPerCycle == 0 {
		c.Risk.MaxEntriesPerCycle = 3
	}
	if c.Risk.TakeProfitMultiplier == 0 {
		c.Risk.TakeProfitMultiplier = 1.03
	}
	if c.TrailingStop.Percent == 0 {
		c.TrailingStop.Percent = 2.0
	}
	if c.TrailingStop.ActivationPercent == 0 {
		c.TrailingStop.ActivationPercent = 1.5
	}
	if c.Execution.OrderTimeoutSec == 0 {
		c.Execution.OrderTimeoutSec = 10
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9190"
	}
}
