package engine

import (
	"github.com/SHKSHBZ/AlgoTrader/internal/store"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

func testConfig() *store.Config {
	cfg := &store.Config{}
	cfg.Mode = "DRY_RUN"
	cfg.Signals.BuyThreshold = 65
	cfg.Signals.SellThreshold = 35
	cfg.Signals.MinVotes = 2
	cfg.Signals.ADXTrendThreshold = 20
	cfg.Regime.LowVolMaxATRPct = 1.5
	cfg.Regime.HighVolMinATRPct = 3.0
	cfg.Regime.Weights.Default = types.RegimeWeights{Daily: 0.30, H60: 0.40, H15: 0.30}
	cfg.Regime.Weights.HighVol = types.RegimeWeights{Daily: 0.20, H60: 0.35, H15: 0.45}
	cfg.Regime.Weights.LowVol = types.RegimeWeights{Daily: 0.40, H60: 0.40, H15: 0.20}
	cfg.Risk.MaxRiskPerTrade = 0.015
	cfg.Risk.KellyFraction = 0.35
	cfg.Risk.KellyMinTrades = 20
	cfg.Risk.MaxPositions = 20
	cfg.Risk.MinLot = 1
	cfg.Risk.MaxEntriesPerCycle = 3
	cfg.Risk.TakeProfitMultiplier = 1.03
	cfg.TrailingStop.Enabled = true
	cfg.TrailingStop.Percent = 2.0
	cfg.TrailingStop.ActivationPercent = 1.5
	cfg.Execution.OrderTimeoutSec = 5
	return cfg
}

// risingCandles builds a steadily climbing series with unit steps and a
// one-point bar range, enough to light up every bullish indicator.
func risingCandles(n int, base float64) []types.Candle {
	cs := make([]types.Candle, n)
	for i := 0; i < n; i++ {
		c := base + float64(i)
		cs[i] = types.Candle{
			Ts:    int64(i) * 60,
			Open:  c - 0.5,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
			Vol:   1000,
		}
	}
	return cs
}

func fallingCandles(n int, base float64) []types.Candle {
	cs := make([]types.Candle, n)
	for i := 0; i < n; i++ {
		c := base - float64(i)
		cs[i] = types.Candle{
			Ts:    int64(i) * 60,
			Open:  c + 0.5,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
			Vol:   1000,
		}
	}
	return cs
}

// flatCandles holds a constant close with a configurable bar range, which
// pins the ATR for regime tests.
func flatCandles(n int, price, halfRange float64) []types.Candle {
	cs := make([]types.Candle, n)
	for i := 0; i < n; i++ {
		cs[i] = types.Candle{
			Ts:    int64(i) * 60,
			Open:  price,
			High:  price + halfRange,
			Low:   price - halfRange,
			Close: price,
			Vol:   1000,
		}
	}
	return cs
}
