package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrIntegrity marks a mutation that would violate a portfolio invariant
// (duplicate position, max positions exceeded, capital going negative).
// The mutation is aborted without partial application.
var ErrIntegrity = errors.New("ledger integrity violation")

type Position struct {
	Symbol         string  `json:"symbol"`
	Quantity       int     `json:"quantity"`
	EntryPrice     float64 `json:"entry_price"`
	EntryTs        int64   `json:"entry_ts"`
	EntryCost      float64 `json:"entry_cost"`
	StopLoss       float64 `json:"stop_loss"`
	Target         float64 `json:"target"`
	HighestPrice   float64 `json:"highest_price_since_entry"`
	TrailingActive bool    `json:"trailing_active"`
}

type TradeRecord struct {
	Symbol      string  `json:"symbol"`
	Quantity    int     `json:"quantity"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price"`
	EntryTs     int64   `json:"entry_ts"`
	ExitTs      int64   `json:"exit_ts"`
	RealizedPnL float64 `json:"realized_pnl"`
	Outcome     string  `json:"outcome"` // "win" or "loss"
	Reason      string  `json:"reason"`
}

type Portfolio struct {
	Capital       float64             `json:"capital"`
	Positions     map[string]Position `json:"positions"`
	TradeHistory  []TradeRecord       `json:"trade_history"`
	TotalTrades   int                 `json:"total_trades"`
	WinningTrades int                 `json:"winning_trades"`
	LastUpdated   int64               `json:"last_updated"`
}

// Stats are the trailing trade statistics the sizing engine consumes.
type Stats struct {
	TotalTrades     int
	WinRate         float64
	AvgWinLossRatio float64
}

// Ledger is the single owner of portfolio state. All mutations are
// serialized, applied atomically, and saved to disk before returning.
type Ledger struct {
	mu           sync.Mutex
	path         string
	maxPositions int
	p            Portfolio
}

// Open loads the ledger from path, or starts a fresh portfolio with
// initialCapital when no file exists yet.
func Open(path string, initialCapital float64, maxPositions int) (*Ledger, error) {
	l := &Ledger{
		path:         path,
		maxPositions: maxPositions,
		p: Portfolio{
			Capital:   initialCapital,
			Positions: map[string]Position{},
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, err
				}
			}
			if err := l.save(); err != nil {
				return nil, err
			}
			return l, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &l.p); err != nil {
		return nil, fmt.Errorf("ledger file %s is corrupt: %w", path, err)
	}
	if l.p.Positions == nil {
		l.p.Positions = map[string]Position{}
	}
	return l, nil
}

// Snapshot returns a deep copy of the portfolio. Callers never see live state.
func (l *Ledger) Snapshot() Portfolio {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyLocked()
}

func (l *Ledger) copyLocked() Portfolio {
	cp := l.p
	cp.Positions = make(map[string]Position, len(l.p.Positions))
	for k, v := range l.p.Positions {
		cp.Positions[k] = v
	}
	cp.TradeHistory = append([]TradeRecord(nil), l.p.TradeHistory...)
	return cp
}

// OpenPosition inserts pos and debits capital atomically. The position is
// only inserted if every invariant check passes and the debit fits.
func (l *Ledger) OpenPosition(pos Position, debit float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.p.Positions[pos.Symbol]; exists {
		return fmt.Errorf("%w: position already open for %s", ErrIntegrity, pos.Symbol)
	}
	if len(l.p.Positions) >= l.maxPositions {
		return fmt.Errorf("%w: max positions (%d) reached", ErrIntegrity, l.maxPositions)
	}
	if pos.Quantity <= 0 {
		return fmt.Errorf("%w: non-positive quantity %d for %s", ErrIntegrity, pos.Quantity, pos.Symbol)
	}
	if debit > l.p.Capital {
		return fmt.Errorf("%w: debit %.2f exceeds capital %.2f", ErrIntegrity, debit, l.p.Capital)
	}

	l.p.Positions[pos.Symbol] = pos
	l.p.Capital -= debit
	return l.save()
}

// ClosePosition removes the position, credits proceeds, and appends the
// trade record. Returns the record for logging and history sinks.
func (l *Ledger) ClosePosition(symbol string, exitPrice, proceeds float64, ts int64, reason string) (TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, exists := l.p.Positions[symbol]
	if !exists {
		return TradeRecord{}, fmt.Errorf("%w: no open position for %s", ErrIntegrity, symbol)
	}

	pnl := proceeds - pos.EntryCost
	outcome := "loss"
	if pnl > 0 {
		outcome = "win"
	}
	rec := TradeRecord{
		Symbol:      symbol,
		Quantity:    pos.Quantity,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		EntryTs:     pos.EntryTs,
		ExitTs:      ts,
		RealizedPnL: pnl,
		Outcome:     outcome,
		Reason:      reason,
	}

	delete(l.p.Positions, symbol)
	l.p.Capital += proceeds
	l.p.TradeHistory = append(l.p.TradeHistory, rec)
	l.p.TotalTrades++
	if outcome == "win" {
		l.p.WinningTrades++
	}
	if err := l.save(); err != nil {
		return TradeRecord{}, err
	}
	return rec, nil
}

// UpdateTrailing records a trailing-stop update for symbol. The stop and
// highest-price ratchet is enforced here regardless of the caller's values:
// both may only rise over the position's lifetime.
func (l *Ledger) UpdateTrailing(symbol string, active bool, highest, stop float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, exists := l.p.Positions[symbol]
	if !exists {
		return fmt.Errorf("%w: no open position for %s", ErrIntegrity, symbol)
	}

	changed := false
	if active && !pos.TrailingActive {
		pos.TrailingActive = true
		changed = true
	}
	if highest > pos.HighestPrice {
		pos.HighestPrice = highest
		changed = true
	}
	if stop > pos.StopLoss {
		pos.StopLoss = stop
		changed = true
	}
	if !changed {
		return nil
	}
	l.p.Positions[symbol] = pos
	return l.save()
}

// Stats computes trailing win-rate and average win/loss ratio from the
// trade history. Zero values when no trades (callers apply their own
// neutral defaults below their minimum sample size).
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{TotalTrades: l.p.TotalTrades}
	if l.p.TotalTrades == 0 {
		return s
	}
	s.WinRate = float64(l.p.WinningTrades) / float64(l.p.TotalTrades)

	winSum, lossSum := 0.0, 0.0
	wins, losses := 0, 0
	for _, t := range l.p.TradeHistory {
		if t.RealizedPnL > 0 {
			winSum += t.RealizedPnL
			wins++
		} else {
			lossSum += -t.RealizedPnL
			losses++
		}
	}
	if wins > 0 && losses > 0 && lossSum > 0 {
		s.AvgWinLossRatio = (winSum / float64(wins)) / (lossSum / float64(losses))
	} else {
		s.AvgWinLossRatio = 1.0
	}
	return s
}

func (l *Ledger) save() error {
	l.p.LastUpdated = time.Now().Unix()
	data, err := json.MarshalIndent(&l.p, "", "  ")
	if err != nil {
		return err
	}
	backupBestEffort(l.path)
	return writeFileAtomic(l.path, data, 0o644)
}
