package interfaces

import (
	"context"
	"errors"

	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// Broker is the order-execution collaborator. Retry policy belongs to the
// implementation, never to the engine.
type Broker interface {
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}

var (
	// ErrExecutionTimeout is returned when the execution collaborator did not
	// answer within its deadline. The engine surfaces it without retrying.
	ErrExecutionTimeout = errors.New("execution timeout")
	// ErrExecutionRejected is returned when the collaborator refused the order.
	ErrExecutionRejected = errors.New("execution rejected")
)
