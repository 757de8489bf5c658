package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/SHKSHBZ/AlgoTrader/internal/interfaces"
	"github.com/SHKSHBZ/AlgoTrader/internal/ledger"
	"github.com/SHKSHBZ/AlgoTrader/internal/logger"
	"github.com/SHKSHBZ/AlgoTrader/internal/metrics"
	"github.com/SHKSHBZ/AlgoTrader/internal/recorder"
	"github.com/SHKSHBZ/AlgoTrader/internal/store"
	"github.com/SHKSHBZ/AlgoTrader/internal/ta"
	"github.com/SHKSHBZ/AlgoTrader/internal/tradelog"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// Bar counts requested per horizon: minimum lookback plus warmup headroom.
const (
	fetchDaily = 250
	fetch60Min = 120
	fetch15Min = 60
)

type Engine struct {
	cfg  *store.Config
	data interfaces.MarketData
	brk  interfaces.Broker
	led  *ledger.Ledger
	rec  recorder.Recorder
}

func New(cfg *store.Config, data interfaces.MarketData, brk interfaces.Broker, led *ledger.Ledger, rec recorder.Recorder) *Engine {
	return &Engine{cfg: cfg, data: data, brk: brk, led: led, rec: rec}
}

// analysis is the per-symbol evaluation of one cycle: pure up to the
// ledger boundary, so it is safe to compute concurrently across symbols.
type analysis struct {
	symbol    string
	price     float64
	ts        int64
	trend     types.Trend
	regime    string
	consensus types.ConsensusResult
	signal    types.Signal
	stopEst   float64
}

func (e *Engine) fetchHorizon(ctx context.Context, symbol string, h types.Horizon, n int) []types.Candle {
	candles, err := e.data.Candles(ctx, symbol, h, n)
	if err != nil {
		logger.Warn(ctx, "Failed to fetch candles, treating horizon as missing", "symbol", symbol, "horizon", string(h), "error", err)
		return nil
	}
	return candles
}

func (e *Engine) analyze(ctx context.Context, symbol string) (*analysis, error) {
	logger.Debug(ctx, "Analyzing symbol", "symbol", symbol)

	daily := e.fetchHorizon(ctx, symbol, types.HorizonDaily, fetchDaily)
	h60 := e.fetchHorizon(ctx, symbol, types.Horizon60Min, fetch60Min)
	h15 := e.fetchHorizon(ctx, symbol, types.Horizon15Min, fetch15Min)

	components := make([]types.ComponentScore, 0, 3)
	for _, hc := range []struct {
		h       types.Horizon
		candles []types.Candle
	}{
		{types.HorizonDaily, daily},
		{types.Horizon60Min, h60},
		{types.Horizon15Min, h15},
	} {
		cs, err := scoreHorizon(hc.h, hc.candles)
		if err != nil {
			logger.Debug(ctx, "Component unavailable", "symbol", symbol, "horizon", string(hc.h), "error", err)
			continue
		}
		components = append(components, cs)
	}

	price, err := e.data.LastPrice(ctx, symbol)
	if err != nil || price <= 0 {
		price = lastClose(h15, h60, daily)
		if price <= 0 {
			return nil, fmt.Errorf("no price available for %s", symbol)
		}
	}

	regime, weights := classifyRegime(daily, e.cfg)
	trend := classifyTrend(daily, e.cfg.Signals.ADXTrendThreshold)

	cr, aggErr := aggregate(components, weights, trend, regime)
	if aggErr != nil {
		logger.Debug(ctx, "Consensus degraded to HOLD", "symbol", symbol, "components", len(components))
	}

	ts := time.Now().Unix()
	sig := classify(symbol, cr, e.cfg, ts)

	a := &analysis{
		symbol:    symbol,
		price:     price,
		ts:        ts,
		trend:     trend,
		regime:    regime,
		consensus: cr,
		signal:    sig,
		stopEst:   e.estimateStop(h60, price),
	}

	logger.Signal(ctx, symbol, string(sig.Direction), sig.FinalScore, sig.Votes, string(sig.Confidence),
		"regime", regime, "trend", string(trend), "price", price)
	metrics.RecordSignal(symbol, string(sig.Direction), string(sig.Confidence))

	scores := make(map[string]float64, len(components))
	for _, c := range components {
		scores[string(c.Horizon)] = c.Score
	}
	if err := tradelog.AppendSignal(tradelog.SignalEntry{
		Symbol: symbol, Direction: string(sig.Direction), Confidence: string(sig.Confidence),
		FinalScore: sig.FinalScore, Votes: sig.Votes, Regime: regime, Trend: string(trend),
		Price: price, Scores: scores,
	}); err != nil {
		logger.Warn(ctx, "Failed to append signal log", "symbol", symbol, "error", err)
	}
	if err := e.rec.RecordSignal(sig, regime, trend); err != nil {
		logger.Warn(ctx, "Failed to record signal", "symbol", symbol, "error", err)
	}
	return a, nil
}

func lastClose(series ...[]types.Candle) float64 {
	for _, s := range series {
		if len(s) > 0 {
			return s[len(s)-1].Close
		}
	}
	return 0
}

// estimateStop places the initial protective stop at the 60-minute lower
// Bollinger band, falling back to 2% below entry.
func (e *Engine) estimateStop(h60 []types.Candle, entry float64) float64 {
	if len(h60) > 0 {
		closes, _, _, _ := seriesOf(h60)
		_, _, low := ta.Bollinger(closes, 20, 2.0)
		if !math.IsNaN(low) && low > 0 && low < entry {
			return low
		}
	}
	return entry * 0.98
}

// Step evaluates one symbol: protective exits on an open position first,
// then a fresh entry when flat.
func (e *Engine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	a, err := e.analyze(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Analysis failed", err, "symbol", symbol)
		return nil, err
	}

	result := &types.StepResult{
		Symbol: symbol,
		Signal: a.signal,
		Price:  a.price,
		Time:   a.ts,
		Orders: []types.OrderResp{},
		Reason: "HOLD",
	}

	snap := e.led.Snapshot()
	if pos, held := snap.Positions[symbol]; held {
		resp, reason, exited, err := e.manageOpen(ctx, pos, a)
		if err != nil {
			return nil, err
		}
		result.Reason = reason
		if exited {
			result.Orders = append(result.Orders, resp)
		}
		return result, nil
	}

	switch a.signal.Direction {
	case types.Buy:
		resp, reason, entered, err := e.enter(ctx, a)
		if err != nil {
			return nil, err
		}
		result.Reason = reason
		if entered {
			result.Orders = append(result.Orders, resp)
		}
	case types.Sell:
		// Nothing to exit and no short selling.
		result.Reason = "NO_POSITION"
	}
	return result, nil
}

// manageOpen runs the exit paths for an open position in priority order:
// trailing update, stop check, take-profit target, strategy SELL.
func (e *Engine) manageOpen(ctx context.Context, pos ledger.Position, a *analysis) (types.OrderResp, string, bool, error) {
	symbol := a.symbol
	price := a.price

	active, highest, stop := trailStop(pos, price, e.cfg)
	if active != pos.TrailingActive || highest != pos.HighestPrice || stop != pos.StopLoss {
		if err := e.led.UpdateTrailing(symbol, active, highest, stop); err != nil {
			return types.OrderResp{}, "", false, err
		}
		if stop > pos.StopLoss {
			logger.Risk(ctx, symbol, "TRAILING_STOP_RAISED", "old_stop", pos.StopLoss, "new_stop", stop, "highest", highest)
		}
	}
	// Stop check runs before everything else to prioritize capital protection.
	if price <= stop {
		logger.Risk(ctx, symbol, "STOP_LOSS_TRIGGERED", "price", price, "stop", stop, "qty", pos.Quantity, "entry", pos.EntryPrice)
		metrics.RecordStopTrigger(symbol)
		resp, err := e.closePosition(ctx, pos, "STOP_LOSS")
		if err != nil {
			return types.OrderResp{}, "STOP_LOSS_FAILED", false, err
		}
		return resp, "STOP_LOSS", true, nil
	}

	if pos.Target > 0 && price >= pos.Target {
		resp, err := e.closePosition(ctx, pos, "TARGET")
		if err != nil {
			return types.OrderResp{}, "TARGET_FAILED", false, err
		}
		return resp, "TARGET", true, nil
	}

	if a.signal.Direction == types.Sell {
		resp, err := e.closePosition(ctx, pos, "SIGNAL_SELL")
		if err != nil {
			return types.OrderResp{}, "SIGNAL_SELL_FAILED", false, err
		}
		return resp, "SIGNAL_SELL", true, nil
	}

	return types.OrderResp{}, "HOLDING", false, nil
}

func (e *Engine) orderCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(e.cfg.Execution.OrderTimeoutSec)*time.Second)
}

func (e *Engine) closePosition(ctx context.Context, pos ledger.Position, reason string) (types.OrderResp, error) {
	octx, cancel := e.orderCtx(ctx)
	defer cancel()

	resp, err := e.brk.PlaceOrder(octx, types.OrderReq{
		Symbol: pos.Symbol, Side: types.Sell, Qty: pos.Quantity, OrderType: "MARKET", Tag: reason,
	})
	if err != nil {
		metrics.RecordOrderRejection(pos.Symbol, "error")
		logger.ErrorWithErr(ctx, "Failed to execute exit order", err, "symbol", pos.Symbol, "reason", reason)
		return types.OrderResp{}, err
	}
	if !resp.Filled {
		metrics.RecordOrderRejection(pos.Symbol, resp.RejectionReason)
		return types.OrderResp{}, fmt.Errorf("%w: %s", interfaces.ErrExecutionRejected, resp.RejectionReason)
	}

	proceeds := resp.FillPrice * float64(pos.Quantity) * (1 - e.cfg.Execution.TransactionCostPct/100.0)
	rec, err := e.led.ClosePosition(pos.Symbol, resp.FillPrice, proceeds, resp.FillTs, reason)
	if err != nil {
		return types.OrderResp{}, err
	}

	logger.Trade(ctx, pos.Symbol, "SELL", pos.Quantity, resp.FillPrice, resp.OrderID, "reason", reason, "pnl", rec.RealizedPnL)
	metrics.RecordTrade(pos.Symbol, "SELL", reason)
	if err := tradelog.Append(tradelog.Entry{
		Symbol: pos.Symbol, Side: "SELL", Qty: pos.Quantity, Price: resp.FillPrice,
		OrderID: resp.OrderID, Reason: reason, PnL: rec.RealizedPnL,
	}); err != nil {
		logger.Warn(ctx, "Failed to append trade log", "symbol", pos.Symbol, "error", err)
	}
	if err := e.rec.RecordTrade(rec); err != nil {
		logger.Warn(ctx, "Failed to record trade", "symbol", pos.Symbol, "error", err)
	}
	return resp, nil
}

func (e *Engine) enter(ctx context.Context, a *analysis) (types.OrderResp, string, bool, error) {
	snap := e.led.Snapshot()
	if len(snap.Positions) >= e.cfg.Risk.MaxPositions {
		logger.Risk(ctx, a.symbol, "MAX_POSITIONS_REACHED", "open", len(snap.Positions), "max", e.cfg.Risk.MaxPositions)
		return types.OrderResp{}, "MAX_POSITIONS", false, nil
	}

	qty, err := positionSize(snap.Capital, a.price, a.stopEst, e.led.Stats(), e.cfg)
	if err != nil {
		if errors.Is(err, ErrSizingInfeasible) {
			logger.Debug(ctx, "Sizing produced no trade", "symbol", a.symbol, "error", err)
			return types.OrderResp{}, "SIZING_ZERO", false, nil
		}
		return types.OrderResp{}, "", false, err
	}

	octx, cancel := e.orderCtx(ctx)
	defer cancel()
	resp, err := e.brk.PlaceOrder(octx, types.OrderReq{
		Symbol: a.symbol, Side: types.Buy, Qty: qty, OrderType: "MARKET", Tag: "ENTRY",
	})
	if err != nil {
		metrics.RecordOrderRejection(a.symbol, "error")
		logger.ErrorWithErr(ctx, "Failed to execute entry order", err, "symbol", a.symbol, "qty", qty)
		return types.OrderResp{}, "ORDER_FAILED", false, err
	}
	if !resp.Filled {
		metrics.RecordOrderRejection(a.symbol, resp.RejectionReason)
		logger.Warn(ctx, "Entry order rejected", "symbol", a.symbol, "qty", qty, "rejection", resp.RejectionReason)
		return types.OrderResp{}, "ORDER_REJECTED", false, nil
	}

	stop := a.stopEst
	if resp.FillPrice <= stop {
		stop = resp.FillPrice * 0.98
	}
	entryCost := resp.FillPrice * float64(qty) * (1 + e.cfg.Execution.TransactionCostPct/100.0)
	pos := ledger.Position{
		Symbol:       a.symbol,
		Quantity:     qty,
		EntryPrice:   resp.FillPrice,
		EntryTs:      resp.FillTs,
		EntryCost:    entryCost,
		StopLoss:     stop,
		Target:       resp.FillPrice * e.cfg.Risk.TakeProfitMultiplier,
		HighestPrice: resp.FillPrice,
	}
	if err := e.led.OpenPosition(pos, entryCost); err != nil {
		logger.ErrorWithErr(ctx, "Ledger rejected fill", err, "symbol", a.symbol, "qty", qty, "cost", entryCost)
		return types.OrderResp{}, "", false, err
	}

	logger.Trade(ctx, a.symbol, "BUY", qty, resp.FillPrice, resp.OrderID,
		"stop", stop, "target", pos.Target, "confidence", string(a.signal.Confidence))
	metrics.RecordTrade(a.symbol, "BUY", "ENTRY")
	if err := tradelog.Append(tradelog.Entry{
		Symbol: a.symbol, Side: "BUY", Qty: qty, Price: resp.FillPrice,
		OrderID: resp.OrderID, Reason: "ENTRY",
	}); err != nil {
		logger.Warn(ctx, "Failed to append trade log", "symbol", a.symbol, "error", err)
	}
	return resp, "ENTRY", true, nil
}

// RunCycle evaluates the whole watchlist. Open positions are managed first
// and serially so stops always run before fresh capital is committed.
// Flat symbols are analyzed in parallel (analysis is pure); resulting BUY
// signals are executed best-score-first at the ledger boundary.
func (e *Engine) RunCycle(ctx context.Context, symbols []string) (*types.CycleResult, error) {
	start := time.Now()
	defer func() { metrics.ObserveCycle(time.Since(start)) }()

	cycle := &types.CycleResult{}
	snap := e.led.Snapshot()

	var flat []string
	for _, sym := range symbols {
		if _, held := snap.Positions[sym]; held {
			res, err := e.Step(ctx, sym)
			if err != nil {
				logger.ErrorWithErr(ctx, "Cycle step failed", err, "symbol", sym)
				continue
			}
			cycle.Results = append(cycle.Results, *res)
			if len(res.Orders) > 0 {
				cycle.Exited++
			}
		} else {
			flat = append(flat, sym)
		}
	}

	analyses := make([]*analysis, len(flat))
	var wg sync.WaitGroup
	for i, sym := range flat {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			a, err := e.analyze(ctx, sym)
			if err != nil {
				logger.ErrorWithErr(ctx, "Cycle analysis failed", err, "symbol", sym)
				return
			}
			analyses[i] = a
		}(i, sym)
	}
	wg.Wait()

	var buys []*analysis
	for _, a := range analyses {
		if a == nil {
			continue
		}
		if a.signal.Direction == types.Buy {
			buys = append(buys, a)
			continue
		}
		reason := "HOLD"
		if a.signal.Direction == types.Sell {
			reason = "NO_POSITION"
		}
		cycle.Results = append(cycle.Results, types.StepResult{
			Symbol: a.symbol, Signal: a.signal, Price: a.price, Time: a.ts,
			Orders: []types.OrderResp{}, Reason: reason,
		})
	}

	// Strongest signals get capital first.
	sort.Slice(buys, func(i, j int) bool { return buys[i].signal.FinalScore > buys[j].signal.FinalScore })

	for i, a := range buys {
		res := types.StepResult{
			Symbol: a.symbol, Signal: a.signal, Price: a.price, Time: a.ts,
			Orders: []types.OrderResp{}, Reason: "ENTRY_LIMIT",
		}
		if i < e.cfg.Risk.MaxEntriesPerCycle {
			resp, reason, entered, err := e.enter(ctx, a)
			if err != nil {
				logger.ErrorWithErr(ctx, "Cycle entry failed", err, "symbol", a.symbol)
				continue
			}
			res.Reason = reason
			if entered {
				res.Orders = append(res.Orders, resp)
				cycle.Entered++
			}
		}
		cycle.Results = append(cycle.Results, res)
	}

	e.reportCycle(ctx, cycle)
	return cycle, nil
}

func (e *Engine) reportCycle(ctx context.Context, cycle *types.CycleResult) {
	snap := e.led.Snapshot()
	stats := e.led.Stats()
	logger.Info(ctx, "Cycle complete",
		"capital", snap.Capital,
		"open_positions", len(snap.Positions),
		"entered", cycle.Entered,
		"exited", cycle.Exited,
		"total_trades", stats.TotalTrades,
		"win_rate", stats.WinRate,
	)
	metrics.SetPortfolio(snap.Capital, len(snap.Positions), stats.WinRate)
	if err := e.rec.RecordCycle(snap.Capital, len(snap.Positions), cycle.Entered, cycle.Exited, stats.WinRate); err != nil {
		logger.Warn(ctx, "Failed to record cycle", "error", err)
	}
}

// FlattenAll closes every open position at the last available price.
// Used for session-end flattening on shutdown.
func (e *Engine) FlattenAll(ctx context.Context) error {
	snap := e.led.Snapshot()
	var firstErr error
	for sym, pos := range snap.Positions {
		if _, err := e.closePosition(ctx, pos, "SESSION_END"); err != nil {
			logger.ErrorWithErr(ctx, "Session-end flatten failed", err, "symbol", sym)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
