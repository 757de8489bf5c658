package interfaces

import (
	"context"

	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

type Engine interface {
	// Step evaluates one instrument: protective exits first, then a fresh
	// entry signal if no position is open.
	Step(ctx context.Context, symbol string) (*types.StepResult, error)
	// RunCycle evaluates the whole watchlist: all exits, then new entries
	// ranked best-score-first.
	RunCycle(ctx context.Context, symbols []string) (*types.CycleResult, error)
}
