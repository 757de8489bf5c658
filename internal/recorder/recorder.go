package recorder

import (
	"github.com/SHKSHBZ/AlgoTrader/internal/ledger"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// Recorder is the queryable history sink. The JSON ledger stays the
// authoritative store; a recorder only appends for offline analysis, so
// callers treat failures as non-fatal.
type Recorder interface {
	RecordSignal(sig types.Signal, regime string, trend types.Trend) error
	RecordTrade(rec ledger.TradeRecord) error
	RecordCycle(capital float64, openPositions, entered, exited int, winRate float64) error
	Close() error
}

// Noop discards everything. Used when no history database is configured.
type Noop struct{}

func (Noop) RecordSignal(types.Signal, string, types.Trend) error { return nil }
func (Noop) RecordTrade(ledger.TradeRecord) error                 { return nil }
func (Noop) RecordCycle(float64, int, int, int, float64) error    { return nil }
func (Noop) Close() error                                         { return nil }
