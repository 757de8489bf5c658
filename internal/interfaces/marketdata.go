package interfaces

import (
	"context"

	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// MarketData supplies bar sequences per instrument per horizon. The series
// are time-ordered ascending; the core borrows them read-only.
type MarketData interface {
	Candles(ctx context.Context, symbol string, horizon types.Horizon, n int) ([]types.Candle, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}
