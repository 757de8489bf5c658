package engine

import "errors"

var (
	// ErrInsufficientData marks a horizon with too few bars. Callers treat
	// the component as missing, never as a fatal failure.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrConsensusUnavailable marks fewer than 2 of 3 components present.
	// The cycle degrades to a forced HOLD.
	ErrConsensusUnavailable = errors.New("consensus unavailable")
	// ErrSizingInfeasible marks a sizing request that cannot produce a
	// positive quantity (entry at or below stop, no capital, below min lot).
	ErrSizingInfeasible = errors.New("sizing infeasible")
)
