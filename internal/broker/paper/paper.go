package paper

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/SHKSHBZ/AlgoTrader/internal/interfaces"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// Broker simulates both market data and order execution for DRY_RUN mode.
// Bar series come from per-symbol CSV caches when present, with a synthetic
// random-walk generator as fallback. Fills apply configured slippage.
type Broker struct {
	dataDir     string
	slippagePct float64

	mu    sync.Mutex
	cache map[string][]types.Candle // key: symbol|horizon
}

var (
	_ interfaces.MarketData = (*Broker)(nil)
	_ interfaces.Broker     = (*Broker)(nil)
)

func New(dataDir string, slippagePct float64) *Broker {
	return &Broker{
		dataDir:     dataDir,
		slippagePct: slippagePct,
		cache:       map[string][]types.Candle{},
	}
}

func barSeconds(h types.Horizon) int64 {
	switch h {
	case types.HorizonDaily:
		return 86400
	case types.Horizon60Min:
		return 3600
	default:
		return 900
	}
}

func (b *Broker) series(symbol string, h types.Horizon, n int) []types.Candle {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := symbol + "|" + string(h)
	candles, ok := b.cache[key]
	if !ok {
		candles = loadCSVCandles(b.dataDir, symbol, h)
		if len(candles) == 0 {
			candles = syntheticCandles(symbol, h, 400)
		}
		b.cache[key] = candles
	}
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles
}

// syntheticCandles generates a seeded random walk so repeated fetches for
// one symbol stay consistent across horizons and runs.
func syntheticCandles(symbol string, h types.Horizon, n int) []types.Candle {
	hs := fnv.New64a()
	hs.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(hs.Sum64())))

	base := 500.0 + rng.Float64()*1500.0
	step := barSeconds(h)
	now := time.Now().Unix()

	cs := make([]types.Candle, 0, n)
	price := base
	for i := n; i > 0; i-- {
		price += (rng.Float64() - 0.48) * base * 0.005
		if price < 1 {
			price = 1
		}
		hi := price + rng.Float64()*base*0.003
		lo := price - rng.Float64()*base*0.003
		cs = append(cs, types.Candle{
			Ts:    now - int64(i)*step,
			Open:  price - (rng.Float64()-0.5)*base*0.002,
			High:  hi,
			Low:   lo,
			Close: price,
			Vol:   1000 + rng.Float64()*9000,
		})
	}
	return cs
}

func (b *Broker) Candles(ctx context.Context, symbol string, horizon types.Horizon, n int) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.series(symbol, horizon, n), nil
}

func (b *Broker) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := b.series(symbol, types.Horizon15Min, 1)
	if len(s) == 0 {
		return 0, fmt.Errorf("no data for %s", symbol)
	}
	return s[len(s)-1].Close, nil
}

// PlaceOrder fills market orders at last price adjusted by slippage
// (against the trader on both sides).
func (b *Broker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return types.OrderResp{}, interfaces.ErrExecutionTimeout
		}
		return types.OrderResp{}, ctx.Err()
	default:
	}

	if req.Qty <= 0 {
		return types.OrderResp{
			Filled:          false,
			RejectionReason: "invalid quantity",
		}, nil
	}

	price, err := b.LastPrice(ctx, req.Symbol)
	if err != nil {
		return types.OrderResp{Filled: false, RejectionReason: "no market data"}, nil
	}

	slip := price * b.slippagePct / 100.0
	if req.Side == types.Buy {
		price += slip
	} else {
		price -= slip
	}
	if req.OrderType == "LIMIT" && req.LimitPrice > 0 {
		if req.Side == types.Buy && price > req.LimitPrice {
			return types.OrderResp{Filled: false, RejectionReason: "limit not reached"}, nil
		}
		if req.Side == types.Sell && price < req.LimitPrice {
			return types.OrderResp{Filled: false, RejectionReason: "limit not reached"}, nil
		}
	}

	return types.OrderResp{
		OrderID:   fmt.Sprintf("SIM-%d", time.Now().UnixNano()),
		Filled:    true,
		FillPrice: price,
		FillTs:    time.Now().Unix(),
	}, nil
}
