package engineobs

import (
	"context"
	"time"

	"github.com/SHKSHBZ/AlgoTrader/internal/interfaces"
	"github.com/SHKSHBZ/AlgoTrader/internal/logger"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	ctx, span := logger.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting step",
		"symbol", symbol,
	)

	result, err := oe.engine.Step(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Step failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Step completed",
		"symbol", symbol,
		"direction", string(result.Signal.Direction),
		"confidence", string(result.Signal.Confidence),
		"reason", result.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

func (oe *observableEngine) RunCycle(ctx context.Context, symbols []string) (*types.CycleResult, error) {
	ctx, span := logger.StartSpan(ctx, "engine.RunCycle")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting evaluation cycle",
		"symbols", len(symbols),
	)

	result, err := oe.engine.RunCycle(ctx, symbols)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Evaluation cycle failed", err,
			"symbols", len(symbols),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Evaluation cycle completed",
		"symbols", len(symbols),
		"entered", result.Entered,
		"exited", result.Exited,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
