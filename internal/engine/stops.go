package engine

import (
	"github.com/SHKSHBZ/AlgoTrader/internal/ledger"
	"github.com/SHKSHBZ/AlgoTrader/internal/store"
)

// trailStop evaluates the trailing-stop transition for one open position at
// the current price. It returns the desired trailing state without mutating
// anything; the ledger applies the update and enforces the ratchet. Pure,
// so re-running it at the same price yields identical values.
func trailStop(pos ledger.Position, price float64, cfg *store.Config) (active bool, highest, stop float64) {
	active = pos.TrailingActive
	highest = pos.HighestPrice
	stop = pos.StopLoss

	if !cfg.TrailingStop.Enabled || pos.EntryPrice <= 0 {
		return
	}

	if !active {
		gainPct := (price - pos.EntryPrice) / pos.EntryPrice * 100.0
		if gainPct < cfg.TrailingStop.ActivationPercent {
			return
		}
		active = true
		highest = price
	}

	if price > highest {
		highest = price
	}
	// Only trail up, never down.
	if candidate := highest * (1.0 - cfg.TrailingStop.Percent/100.0); candidate > stop {
		stop = candidate
	}
	return
}
