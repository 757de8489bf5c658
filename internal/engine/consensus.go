package engine

import (
	"math"

	"github.com/SHKSHBZ/AlgoTrader/internal/store"
	"github.com/SHKSHBZ/AlgoTrader/internal/ta"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// classifyTrend derives the daily trend from SMA-50 vs SMA-200, requiring
// ADX above the configured threshold to call a direction at all.
func classifyTrend(daily []types.Candle, adxThreshold float64) types.Trend {
	closes, highs, lows, _ := seriesOf(daily)
	sma50 := ta.SMA(closes, 50)
	sma200 := ta.SMA(closes, 200)
	adx := ta.ADX(highs, lows, closes, 14)
	if math.IsNaN(sma50) || math.IsNaN(sma200) || math.IsNaN(adx) {
		return types.TrendNeutral
	}
	if adx < adxThreshold {
		return types.TrendNeutral
	}
	switch {
	case sma50 > sma200:
		return types.TrendUp
	case sma50 < sma200:
		return types.TrendDown
	default:
		return types.TrendNeutral
	}
}

func weightFor(h types.Horizon, w types.RegimeWeights) float64 {
	switch h {
	case types.HorizonDaily:
		return w.Daily
	case types.Horizon60Min:
		return w.H60
	default:
		return w.H15
	}
}

// aggregate fuses the present component scores under the regime weights and
// daily trend. Weights are renormalized over the components actually
// present. Fewer than 2 present components forces a HOLD with zero votes.
func aggregate(components []types.ComponentScore, weights types.RegimeWeights, trend types.Trend, regime string) (types.ConsensusResult, error) {
	res := types.ConsensusResult{
		Regime:     regime,
		Components: components,
	}

	switch trend {
	case types.TrendUp:
		res.TrendBias = 10
		res.AllowBuy = true
	case types.TrendDown:
		res.TrendBias = -10
		res.AllowSell = true
	default:
		res.AllowBuy = true
		res.AllowSell = true
	}

	totalWeight := 0.0
	for _, c := range components {
		totalWeight += weightFor(c.Horizon, weights)
	}
	if totalWeight > 0 {
		weighted := 0.0
		for _, c := range components {
			weighted += c.Score * weightFor(c.Horizon, weights) / totalWeight
		}
		res.FinalScore = weighted + res.TrendBias
	}

	if len(components) < 2 {
		// Not enough agreement possible: report the degraded score but
		// allow no action.
		res.Votes = 0
		res.AllowBuy = false
		res.AllowSell = false
		return res, ErrConsensusUnavailable
	}

	for _, c := range components {
		if c.Vote {
			res.Votes++
		}
	}
	return res, nil
}

// classify turns the consensus into a discrete decision with a confidence
// tier. Confidence is advisory and never changes the decision.
func classify(symbol string, cr types.ConsensusResult, cfg *store.Config, ts int64) types.Signal {
	sig := types.Signal{
		Symbol:     symbol,
		Direction:  types.Hold,
		FinalScore: cr.FinalScore,
		Votes:      cr.Votes,
		Ts:         ts,
	}

	switch {
	case cr.Votes >= cfg.Signals.MinVotes && cr.FinalScore >= cfg.Signals.BuyThreshold && cr.AllowBuy:
		sig.Direction = types.Buy
	case cr.Votes >= cfg.Signals.MinVotes && cr.FinalScore <= cfg.Signals.SellThreshold && cr.AllowSell:
		sig.Direction = types.Sell
	}

	switch {
	case cr.Votes == 3 && cr.FinalScore >= 75:
		sig.Confidence = types.ConfidenceHigh
	case cr.Votes >= 2 && cr.FinalScore >= 65:
		sig.Confidence = types.ConfidenceMedium
	default:
		sig.Confidence = types.ConfidenceLow
	}
	return sig
}
