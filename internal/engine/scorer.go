package engine

import (
	"fmt"
	"math"

	"github.com/SHKSHBZ/AlgoTrader/internal/ta"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// Minimum lookbacks per horizon. A shorter series degrades the component
// to "missing" rather than producing a low-quality score.
const (
	minBarsDaily = 200
	minBars60Min = 100
	minBars15Min = 50
)

func minBars(h types.Horizon) int {
	switch h {
	case types.HorizonDaily:
		return minBarsDaily
	case types.Horizon60Min:
		return minBars60Min
	default:
		return minBars15Min
	}
}

func seriesOf(candles []types.Candle) (closes, highs, lows, vols []float64) {
	closes = make([]float64, len(candles))
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	vols = make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		vols[i] = c.Vol
	}
	return
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// scoreHorizon produces the 0-100 directional score for one horizon.
// Higher means stronger bullish evidence; >55 counts as a vote.
func scoreHorizon(h types.Horizon, candles []types.Candle) (types.ComponentScore, error) {
	if len(candles) < minBars(h) {
		return types.ComponentScore{}, fmt.Errorf("%w: %s has %d bars, need %d", ErrInsufficientData, h, len(candles), minBars(h))
	}

	var score float64
	var ok bool
	switch h {
	case types.HorizonDaily:
		score, ok = scoreDaily(candles)
	case types.Horizon60Min:
		score, ok = score60Min(candles)
	default:
		score, ok = score15Min(candles)
	}
	if !ok {
		return types.ComponentScore{}, fmt.Errorf("%w: %s indicators undefined", ErrInsufficientData, h)
	}

	score = clampScore(score)
	return types.ComponentScore{Horizon: h, Score: score, Vote: score > 55}, nil
}

// Daily horizon: trend structure. Price vs SMA-50, SMA-50 vs SMA-200,
// ADX strength confirming the moving-average direction.
func scoreDaily(candles []types.Candle) (float64, bool) {
	closes, highs, lows, _ := seriesOf(candles)
	last := closes[len(closes)-1]
	sma50 := ta.SMA(closes, 50)
	sma200 := ta.SMA(closes, 200)
	adx := ta.ADX(highs, lows, closes, 14)
	if math.IsNaN(sma50) || math.IsNaN(sma200) || math.IsNaN(adx) {
		return 0, false
	}

	score := 50.0
	if last > sma50 {
		score += 12
	} else {
		score -= 12
	}
	if sma50 > sma200 {
		score += 15
	} else {
		score -= 15
	}

	dir := 1.0
	if sma50 < sma200 {
		dir = -1.0
	}
	switch {
	case adx >= 25:
		score += dir * 13
	case adx >= 20:
		score += dir * 6
	}
	return score, true
}

// 60-minute horizon: momentum. RSI-14 ladder, MACD histogram, position
// within the Bollinger channel, volume confirmation.
func score60Min(candles []types.Candle) (float64, bool) {
	closes, _, _, vols := seriesOf(candles)
	last := closes[len(closes)-1]
	rsi := ta.RSI(closes, 14)
	_, _, hist := ta.MACD(closes, 12, 26, 9)
	mid, _, _ := ta.Bollinger(closes, 20, 2.0)
	if math.IsNaN(rsi) || math.IsNaN(hist) || math.IsNaN(mid) {
		return 0, false
	}

	score := 50.0
	switch {
	case rsi > 70:
		score += 5 // overbought, weak confirmation only
	case rsi >= 55:
		score += 14
	case rsi >= 45:
		// neutral zone
	case rsi >= 30:
		score -= 14
	default:
		score -= 5 // oversold, bounce risk caps the penalty
	}

	if hist > 0 {
		score += 15
	} else if hist < 0 {
		score -= 15
	}

	if last > mid {
		score += 10
	} else {
		score -= 10
	}

	avgVol := ta.SMA(vols, 20)
	if !math.IsNaN(avgVol) && avgVol > 0 && vols[len(vols)-1] > 1.2*avgVol {
		if last > mid {
			score += 6
		} else {
			score -= 6
		}
	}
	return score, true
}

// 15-minute horizon: timing. SMA-10/20 alignment, RSI-9, Stochastic
// crossover, 5-bar momentum.
func score15Min(candles []types.Candle) (float64, bool) {
	closes, highs, lows, _ := seriesOf(candles)
	last := closes[len(closes)-1]
	sma10 := ta.SMA(closes, 10)
	sma20 := ta.SMA(closes, 20)
	rsi := ta.RSI(closes, 9)
	k, d := ta.Stochastic(highs, lows, closes, 14, 3)
	mom := ta.Momentum(closes, 5)
	if math.IsNaN(sma10) || math.IsNaN(sma20) || math.IsNaN(rsi) || math.IsNaN(k) || math.IsNaN(mom) {
		return 0, false
	}

	score := 50.0
	switch {
	case last > sma10 && sma10 > sma20:
		score += 15
	case last < sma10 && sma10 < sma20:
		score -= 15
	case last > sma10:
		score += 5
	default:
		score -= 5
	}

	switch {
	case rsi > 60:
		score += 12
	case rsi >= 50:
		score += 4
	case rsi >= 40:
		score -= 4
	default:
		score -= 12
	}

	if k > d {
		score += 8
	} else {
		score -= 8
	}
	if k < 20 {
		score += 4 // oversold turn
	} else if k > 80 {
		score -= 4 // overbought
	}

	switch {
	case mom > 1.5:
		score += 10
	case mom > 0.3:
		score += 4
	case mom < -1.5:
		score -= 10
	case mom < -0.3:
		score -= 4
	}
	return score, true
}
