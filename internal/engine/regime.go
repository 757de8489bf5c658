package engine

import (
	"math"

	"github.com/SHKSHBZ/AlgoTrader/internal/store"
	"github.com/SHKSHBZ/AlgoTrader/internal/ta"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

const (
	RegimeDefault = "default"
	RegimeHighVol = "high_vol"
	RegimeLowVol  = "low_vol"
)

// classifyRegime maps the daily ATR as a percentage of the last close onto
// one of the three weight profiles. The two thresholds partition all real
// values; an undefined metric falls back to the default profile.
func classifyRegime(daily []types.Candle, cfg *store.Config) (string, types.RegimeWeights) {
	if len(daily) == 0 {
		return RegimeDefault, cfg.Regime.Weights.Default
	}
	closes, highs, lows, _ := seriesOf(daily)
	last := closes[len(closes)-1]
	atr := ta.ATR(highs, lows, closes, 14)
	if math.IsNaN(atr) || last <= 0 {
		return RegimeDefault, cfg.Regime.Weights.Default
	}

	atrPct := atr / last * 100.0
	switch {
	case atrPct < cfg.Regime.LowVolMaxATRPct:
		return RegimeLowVol, cfg.Regime.Weights.LowVol
	case atrPct >= cfg.Regime.HighVolMinATRPct:
		return RegimeHighVol, cfg.Regime.Weights.HighVol
	default:
		return RegimeDefault, cfg.Regime.Weights.Default
	}
}
