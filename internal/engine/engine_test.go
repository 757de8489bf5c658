package engine

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/SHKSHBZ/AlgoTrader/internal/ledger"
	"github.com/SHKSHBZ/AlgoTrader/internal/recorder"
	"github.com/SHKSHBZ/AlgoTrader/internal/store"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

type fakeData struct {
	candles map[string]map[types.Horizon][]types.Candle
	prices  map[string]float64
}

func (f *fakeData) Candles(_ context.Context, symbol string, h types.Horizon, n int) ([]types.Candle, error) {
	cs := f.candles[symbol][h]
	if len(cs) > n {
		cs = cs[len(cs)-n:]
	}
	return cs, nil
}

func (f *fakeData) LastPrice(_ context.Context, symbol string) (float64, error) {
	p, ok := f.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return p, nil
}

type fakeBroker struct {
	data *fakeData
	reqs []types.OrderReq
}

func (f *fakeBroker) PlaceOrder(_ context.Context, req types.OrderReq) (types.OrderResp, error) {
	f.reqs = append(f.reqs, req)
	return types.OrderResp{
		OrderID:   fmt.Sprintf("SIM-%d", len(f.reqs)),
		Filled:    true,
		FillPrice: f.data.prices[req.Symbol],
		FillTs:    time.Now().Unix(),
	}, nil
}

func newTestEngine(t *testing.T, cfg *store.Config, data *fakeData, capital float64) (*Engine, *fakeBroker, *ledger.Ledger) {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	led, err := ledger.Open(filepath.Join(t.TempDir(), "portfolio.json"), capital, cfg.Risk.MaxPositions)
	if err != nil {
		t.Fatal(err)
	}
	brk := &fakeBroker{data: data}
	return New(cfg, data, brk, led, recorder.Noop{}), brk, led
}

func bullishData(symbol string, price float64) *fakeData {
	return &fakeData{
		candles: map[string]map[types.Horizon][]types.Candle{
			symbol: {
				types.HorizonDaily: risingCandles(250, 100),
				types.Horizon60Min: risingCandles(120, 100),
				types.Horizon15Min: risingCandles(60, 100),
			},
		},
		prices: map[string]float64{symbol: price},
	}
}

func emptyData(symbol string, price float64) *fakeData {
	return &fakeData{
		candles: map[string]map[types.Horizon][]types.Candle{symbol: {}},
		prices:  map[string]float64{symbol: price},
	}
}

func TestStepStopCheckRunsFirst(t *testing.T) {
	cfg := testConfig()
	data := emptyData("TCS", 95)
	eng, brk, led := newTestEngine(t, cfg, data, 100000)

	pos := ledger.Position{Symbol: "TCS", Quantity: 10, EntryPrice: 100, EntryCost: 1000, StopLoss: 98, HighestPrice: 100}
	if err := led.OpenPosition(pos, 1000); err != nil {
		t.Fatal(err)
	}

	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Reason != "STOP_LOSS" {
		t.Errorf("reason = %s, want STOP_LOSS", res.Reason)
	}
	if len(brk.reqs) != 1 || brk.reqs[0].Side != types.Sell || brk.reqs[0].Tag != "STOP_LOSS" {
		t.Errorf("broker requests = %+v", brk.reqs)
	}

	snap := led.Snapshot()
	if len(snap.Positions) != 0 {
		t.Error("position not closed after stop trigger")
	}
	if snap.TotalTrades != 1 || snap.TradeHistory[0].Outcome != "loss" {
		t.Errorf("history = %+v", snap.TradeHistory)
	}
	// proceeds 10*95 credited back
	if snap.Capital != 99000+950 {
		t.Errorf("capital = %v, want 99950", snap.Capital)
	}
}

func TestStepTargetExitAfterStopCheck(t *testing.T) {
	cfg := testConfig()
	data := emptyData("TCS", 105)
	eng, brk, led := newTestEngine(t, cfg, data, 100000)

	pos := ledger.Position{Symbol: "TCS", Quantity: 10, EntryPrice: 100, EntryCost: 1000, StopLoss: 90, Target: 103, HighestPrice: 100}
	if err := led.OpenPosition(pos, 1000); err != nil {
		t.Fatal(err)
	}

	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Reason != "TARGET" {
		t.Errorf("reason = %s, want TARGET", res.Reason)
	}
	if len(brk.reqs) != 1 || brk.reqs[0].Tag != "TARGET" {
		t.Errorf("broker requests = %+v", brk.reqs)
	}
	if snap := led.Snapshot(); snap.TradeHistory[0].Outcome != "win" {
		t.Errorf("history = %+v", snap.TradeHistory)
	}
}

func TestStepTrailingUpdatePersists(t *testing.T) {
	cfg := testConfig()
	data := emptyData("TCS", 102)
	eng, brk, led := newTestEngine(t, cfg, data, 100000)

	pos := ledger.Position{Symbol: "TCS", Quantity: 10, EntryPrice: 100, EntryCost: 1000, StopLoss: 98, HighestPrice: 100}
	if err := led.OpenPosition(pos, 1000); err != nil {
		t.Fatal(err)
	}

	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Reason != "HOLDING" {
		t.Errorf("reason = %s, want HOLDING", res.Reason)
	}
	if len(brk.reqs) != 0 {
		t.Errorf("unexpected orders: %+v", brk.reqs)
	}

	got := led.Snapshot().Positions["TCS"]
	if !got.TrailingActive || got.HighestPrice != 102 {
		t.Errorf("trailing state = %+v", got)
	}
	if math.Abs(got.StopLoss-99.96) > 1e-9 {
		t.Errorf("stop = %v, want 99.96", got.StopLoss)
	}
}

func TestStepSellWithoutPositionIsNoop(t *testing.T) {
	cfg := testConfig()
	data := emptyData("TCS", 100)
	eng, brk, _ := newTestEngine(t, cfg, data, 100000)

	// No components at all: degraded HOLD, no orders either way.
	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(brk.reqs) != 0 {
		t.Errorf("unexpected orders: %+v", brk.reqs)
	}
	if res.Signal.Direction != types.Hold {
		t.Errorf("direction = %s, want HOLD", res.Signal.Direction)
	}
}

func TestStepEntryFlow(t *testing.T) {
	cfg := testConfig()
	data := bullishData("TCS", 159)
	eng, brk, led := newTestEngine(t, cfg, data, 250000)

	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Signal.Direction != types.Buy {
		t.Fatalf("direction = %s (score %.1f votes %d), want BUY", res.Signal.Direction, res.Signal.FinalScore, res.Signal.Votes)
	}
	if res.Reason != "ENTRY" {
		t.Errorf("reason = %s, want ENTRY", res.Reason)
	}
	if len(brk.reqs) != 1 || brk.reqs[0].Side != types.Buy {
		t.Fatalf("broker requests = %+v", brk.reqs)
	}

	snap := led.Snapshot()
	pos, ok := snap.Positions["TCS"]
	if !ok {
		t.Fatal("no position opened")
	}
	if pos.Quantity != brk.reqs[0].Qty || pos.Quantity <= 0 {
		t.Errorf("quantity = %d", pos.Quantity)
	}
	if pos.StopLoss >= pos.EntryPrice {
		t.Errorf("stop %v not below entry %v", pos.StopLoss, pos.EntryPrice)
	}
	if math.Abs(pos.Target-pos.EntryPrice*cfg.Risk.TakeProfitMultiplier) > 1e-9 {
		t.Errorf("target = %v, want %v", pos.Target, pos.EntryPrice*cfg.Risk.TakeProfitMultiplier)
	}
	if snap.Capital >= 250000 {
		t.Errorf("capital %v not debited", snap.Capital)
	}
}

func TestRunCycleEntryLimitAndExitPriority(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.MaxEntriesPerCycle = 1

	data := &fakeData{
		candles: map[string]map[types.Horizon][]types.Candle{
			"AAA": bullishData("AAA", 159).candles["AAA"],
			"BBB": bullishData("BBB", 159).candles["BBB"],
			"CCC": {},
		},
		prices: map[string]float64{"AAA": 159, "BBB": 159, "CCC": 95},
	}
	eng, _, led := newTestEngine(t, cfg, data, 250000)

	pos := ledger.Position{Symbol: "CCC", Quantity: 10, EntryPrice: 100, EntryCost: 1000, StopLoss: 98, HighestPrice: 100}
	if err := led.OpenPosition(pos, 1000); err != nil {
		t.Fatal(err)
	}

	cycle, err := eng.RunCycle(context.Background(), []string{"AAA", "BBB", "CCC"})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if cycle.Exited != 1 {
		t.Errorf("exited = %d, want 1 (stop on CCC)", cycle.Exited)
	}
	if cycle.Entered != 1 {
		t.Errorf("entered = %d, want 1 (entry limit)", cycle.Entered)
	}

	snap := led.Snapshot()
	if _, held := snap.Positions["CCC"]; held {
		t.Error("CCC still open after stop trigger")
	}
	if len(snap.Positions) != 1 {
		t.Errorf("open positions = %d, want exactly 1 new entry", len(snap.Positions))
	}

	limited := 0
	for _, r := range cycle.Results {
		if r.Reason == "ENTRY_LIMIT" {
			limited++
		}
	}
	if limited != 1 {
		t.Errorf("deferred entries = %d, want 1", limited)
	}
}

func TestRunCycleMaxPositionsBlocksEntries(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.MaxPositions = 1

	data := bullishData("AAA", 159)
	data.candles["ZZZ"] = map[types.Horizon][]types.Candle{}
	data.prices["ZZZ"] = 100
	eng, _, led := newTestEngine(t, cfg, data, 250000)

	held := ledger.Position{Symbol: "ZZZ", Quantity: 10, EntryPrice: 100, EntryCost: 1000, StopLoss: 50, HighestPrice: 100}
	if err := led.OpenPosition(held, 1000); err != nil {
		t.Fatal(err)
	}

	cycle, err := eng.RunCycle(context.Background(), []string{"AAA", "ZZZ"})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if cycle.Entered != 0 {
		t.Errorf("entered = %d, want 0 at max positions", cycle.Entered)
	}
	if len(led.Snapshot().Positions) != 1 {
		t.Errorf("positions = %d, want the original 1", len(led.Snapshot().Positions))
	}
}
