package engine

import (
	"fmt"
	"math"

	"github.com/SHKSHBZ/AlgoTrader/internal/ledger"
	"github.com/SHKSHBZ/AlgoTrader/internal/store"
)

// positionSize computes the share quantity for a BUY as the more
// conservative of a fixed-fractional and a damped Kelly estimate, clamped
// by remaining capital (including transaction costs) and the minimum lot.
func positionSize(capital, entry, stop float64, stats ledger.Stats, cfg *store.Config) (int, error) {
	if capital <= 0 {
		return 0, fmt.Errorf("%w: no capital available", ErrSizingInfeasible)
	}
	if entry <= stop {
		return 0, fmt.Errorf("%w: entry %.2f at or below stop %.2f", ErrSizingInfeasible, entry, stop)
	}

	riskShares := capital * cfg.Risk.MaxRiskPerTrade / (entry - stop)

	winRate, ratio := stats.WinRate, stats.AvgWinLossRatio
	if stats.TotalTrades < cfg.Risk.KellyMinTrades {
		winRate, ratio = 0.5, 1.0
	}
	kellyShares := capital * cfg.Risk.KellyFraction * winRate * ratio / entry

	qty := int(math.Floor(math.Min(riskShares, kellyShares)))

	// Committing the entry plus costs must fit in remaining capital.
	unitCost := entry * (1 + cfg.Execution.TransactionCostPct/100.0)
	if maxAffordable := int(math.Floor(capital / unitCost)); qty > maxAffordable {
		qty = maxAffordable
	}

	if qty < cfg.Risk.MinLot || qty <= 0 {
		return 0, fmt.Errorf("%w: size %d below minimum lot %d", ErrSizingInfeasible, qty, cfg.Risk.MinLot)
	}
	return qty, nil
}
