package ledger

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func newTestLedger(t *testing.T, capital float64, maxPositions int) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.json")
	l, err := Open(path, capital, maxPositions)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return l, path
}

func TestOpenClosePosition(t *testing.T) {
	l, _ := newTestLedger(t, 100000, 20)

	pos := Position{Symbol: "TCS", Quantity: 10, EntryPrice: 100, EntryTs: 1000, EntryCost: 1000, StopLoss: 98}
	if err := l.OpenPosition(pos, 1000); err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}
	p := l.Snapshot()
	if p.Capital != 99000 {
		t.Errorf("capital = %v, want 99000", p.Capital)
	}
	if _, ok := p.Positions["TCS"]; !ok {
		t.Fatal("position not inserted")
	}

	rec, err := l.ClosePosition("TCS", 110, 1100, 2000, "TARGET")
	if err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
	if rec.RealizedPnL != 100 || rec.Outcome != "win" {
		t.Errorf("record = %+v, want pnl 100 win", rec)
	}
	p = l.Snapshot()
	if p.Capital != 100100 {
		t.Errorf("capital = %v, want 100100", p.Capital)
	}
	if len(p.Positions) != 0 {
		t.Errorf("positions not cleared: %v", p.Positions)
	}
	if p.TotalTrades != 1 || p.WinningTrades != 1 || len(p.TradeHistory) != 1 {
		t.Errorf("counters = %d/%d history %d, want 1/1/1", p.TotalTrades, p.WinningTrades, len(p.TradeHistory))
	}
}

func TestOpenPositionIntegrityChecks(t *testing.T) {
	l, _ := newTestLedger(t, 5000, 1)

	pos := Position{Symbol: "INFY", Quantity: 10, EntryPrice: 100, EntryCost: 1000}
	if err := l.OpenPosition(pos, 1000); err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	// duplicate symbol
	if err := l.OpenPosition(pos, 1000); !errors.Is(err, ErrIntegrity) {
		t.Errorf("duplicate open err = %v, want ErrIntegrity", err)
	}
	// max positions
	other := Position{Symbol: "TCS", Quantity: 1, EntryPrice: 100, EntryCost: 100}
	if err := l.OpenPosition(other, 100); !errors.Is(err, ErrIntegrity) {
		t.Errorf("max-positions err = %v, want ErrIntegrity", err)
	}

	// failed mutations leave state untouched
	p := l.Snapshot()
	if p.Capital != 4000 || len(p.Positions) != 1 {
		t.Errorf("state changed by rejected mutation: capital %v positions %d", p.Capital, len(p.Positions))
	}
}

func TestOpenPositionCapitalCheck(t *testing.T) {
	l, _ := newTestLedger(t, 500, 20)
	pos := Position{Symbol: "TCS", Quantity: 10, EntryPrice: 100, EntryCost: 1000}
	if err := l.OpenPosition(pos, 1000); !errors.Is(err, ErrIntegrity) {
		t.Errorf("over-capital err = %v, want ErrIntegrity", err)
	}
	if p := l.Snapshot(); p.Capital != 500 {
		t.Errorf("capital changed to %v by rejected open", p.Capital)
	}
}

func TestCloseWithoutPosition(t *testing.T) {
	l, _ := newTestLedger(t, 1000, 20)
	if _, err := l.ClosePosition("TCS", 100, 1000, 1, "STOP"); !errors.Is(err, ErrIntegrity) {
		t.Errorf("close without position err = %v, want ErrIntegrity", err)
	}
}

func TestRoundTrip(t *testing.T) {
	l, path := newTestLedger(t, 250000, 20)

	if err := l.OpenPosition(Position{Symbol: "TCS", Quantity: 100, EntryPrice: 100, EntryTs: 10, EntryCost: 10000, StopLoss: 98, Target: 103, HighestPrice: 101, TrailingActive: true}, 10000); err != nil {
		t.Fatal(err)
	}
	if err := l.OpenPosition(Position{Symbol: "INFY", Quantity: 50, EntryPrice: 200, EntryTs: 20, EntryCost: 10000, StopLoss: 196}, 10000); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ClosePosition("INFY", 210, 10500, 30, "SIGNAL_SELL"); err != nil {
		t.Fatal(err)
	}

	want := l.Snapshot()

	reloaded, err := Open(path, 0, 20)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := reloaded.Snapshot()

	if got.Capital != want.Capital {
		t.Errorf("capital = %v, want %v", got.Capital, want.Capital)
	}
	if got.TotalTrades != want.TotalTrades || got.WinningTrades != want.WinningTrades {
		t.Errorf("counters = %d/%d, want %d/%d", got.TotalTrades, got.WinningTrades, want.TotalTrades, want.WinningTrades)
	}
	if len(got.Positions) != len(want.Positions) {
		t.Fatalf("positions = %d, want %d", len(got.Positions), len(want.Positions))
	}
	if got.Positions["TCS"] != want.Positions["TCS"] {
		t.Errorf("position = %+v, want %+v", got.Positions["TCS"], want.Positions["TCS"])
	}
	if len(got.TradeHistory) != 1 || got.TradeHistory[0] != want.TradeHistory[0] {
		t.Errorf("history = %+v, want %+v", got.TradeHistory, want.TradeHistory)
	}
}

func TestUpdateTrailingRatchet(t *testing.T) {
	l, _ := newTestLedger(t, 100000, 20)
	if err := l.OpenPosition(Position{Symbol: "TCS", Quantity: 10, EntryPrice: 100, EntryCost: 1000, StopLoss: 98}, 1000); err != nil {
		t.Fatal(err)
	}

	if err := l.UpdateTrailing("TCS", true, 102, 99.96); err != nil {
		t.Fatalf("UpdateTrailing: %v", err)
	}
	pos := l.Snapshot().Positions["TCS"]
	if !pos.TrailingActive || pos.HighestPrice != 102 || pos.StopLoss != 99.96 {
		t.Errorf("after raise: %+v", pos)
	}

	// lower values must not lower the ratchet
	if err := l.UpdateTrailing("TCS", true, 101, 98.98); err != nil {
		t.Fatalf("UpdateTrailing: %v", err)
	}
	pos = l.Snapshot().Positions["TCS"]
	if pos.HighestPrice != 102 || pos.StopLoss != 99.96 {
		t.Errorf("ratchet violated: %+v", pos)
	}
}

func TestCapitalConservation(t *testing.T) {
	l, _ := newTestLedger(t, 100000, 20)
	start := l.Snapshot().Capital

	debits, credits := 0.0, 0.0
	for i, sym := range []string{"A", "B", "C"} {
		cost := float64(1000 * (i + 1))
		if err := l.OpenPosition(Position{Symbol: sym, Quantity: 10, EntryPrice: cost / 10, EntryCost: cost}, cost); err != nil {
			t.Fatal(err)
		}
		debits += cost
	}
	for i, sym := range []string{"A", "C"} {
		proceeds := float64(1100 * (i + 1))
		if _, err := l.ClosePosition(sym, proceeds/10, proceeds, int64(i), "STOP"); err != nil {
			t.Fatal(err)
		}
		credits += proceeds
	}

	got := l.Snapshot().Capital
	want := start - debits + credits
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("capital = %v, want %v", got, want)
	}
}

func TestStats(t *testing.T) {
	l, _ := newTestLedger(t, 100000, 20)

	if s := l.Stats(); s.TotalTrades != 0 {
		t.Errorf("fresh stats = %+v", s)
	}

	trades := []struct {
		sym      string
		cost     float64
		proceeds float64
	}{
		{"A", 1000, 1200}, // +200
		{"B", 1000, 1100}, // +100
		{"C", 1000, 950},  // -50
		{"D", 1000, 900},  // -100
	}
	for i, tr := range trades {
		if err := l.OpenPosition(Position{Symbol: tr.sym, Quantity: 10, EntryPrice: tr.cost / 10, EntryCost: tr.cost}, tr.cost); err != nil {
			t.Fatal(err)
		}
		if _, err := l.ClosePosition(tr.sym, tr.proceeds/10, tr.proceeds, int64(i), "SIGNAL_SELL"); err != nil {
			t.Fatal(err)
		}
	}

	s := l.Stats()
	if s.TotalTrades != 4 {
		t.Errorf("total = %d, want 4", s.TotalTrades)
	}
	if s.WinRate != 0.5 {
		t.Errorf("win rate = %v, want 0.5", s.WinRate)
	}
	// avg win 150, avg loss 75 -> ratio 2
	if math.Abs(s.AvgWinLossRatio-2.0) > 1e-9 {
		t.Errorf("ratio = %v, want 2.0", s.AvgWinLossRatio)
	}
}
