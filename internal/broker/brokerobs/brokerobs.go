package brokerobs

import (
	"context"

	"github.com/SHKSHBZ/AlgoTrader/internal/interfaces"
	"github.com/SHKSHBZ/AlgoTrader/internal/logger"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := logger.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", string(req.Side),
		"qty", req.Qty,
		"tag", req.Tag,
	)

	resp, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", string(req.Side),
			"qty", req.Qty,
		)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 1, "Order placed",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"filled", resp.Filled,
		"fill_price", resp.FillPrice,
	)
	return resp, nil
}

// observableMarketData wraps a MarketData source with debug logging
type observableMarketData struct {
	data interfaces.MarketData
}

var _ interfaces.MarketData = (*observableMarketData)(nil)

// WrapMarketData wraps a market-data source with observability middleware
func WrapMarketData(data interfaces.MarketData) interfaces.MarketData {
	return &observableMarketData{
		data: data,
	}
}

func (om *observableMarketData) Candles(ctx context.Context, symbol string, horizon types.Horizon, n int) ([]types.Candle, error) {
	ctx, span := logger.StartSpan(ctx, "marketdata.Candles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching candles", "symbol", symbol, "horizon", string(horizon), "count", n)

	candles, err := om.data.Candles(ctx, symbol, horizon, n)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "symbol", symbol, "horizon", string(horizon))
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched", "symbol", symbol, "horizon", string(horizon), "count", len(candles))
	return candles, nil
}

func (om *observableMarketData) LastPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, span := logger.StartSpan(ctx, "marketdata.LastPrice")
	defer span.End()

	price, err := om.data.LastPrice(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch last price", err, "symbol", symbol)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Last price fetched", "symbol", symbol, "price", price)
	return price, nil
}
