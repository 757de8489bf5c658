package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	signalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "algotrader_signal_total",
			Help: "Total number of signals generated",
		},
		[]string{"symbol", "direction", "confidence"},
	)

	tradeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "algotrader_trade_total",
			Help: "Total number of executed trades",
		},
		[]string{"symbol", "side", "reason"},
	)

	stopTriggerTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "algotrader_stop_trigger_total",
			Help: "Total number of stop-loss triggered exits",
		},
		[]string{"symbol"},
	)

	orderRejectionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "algotrader_order_rejection_total",
			Help: "Total number of rejected or failed orders",
		},
		[]string{"symbol", "reason"},
	)

	capitalGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "algotrader_capital",
			Help: "Free capital in the portfolio",
		},
	)

	openPositionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "algotrader_open_positions",
			Help: "Number of open positions",
		},
	)

	winRateGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "algotrader_win_rate",
			Help: "Trailing win rate over closed trades",
		},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "algotrader_cycle_duration_seconds",
			Help:    "Evaluation cycle duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0},
		},
	)
)

func RecordSignal(symbol, direction, confidence string) {
	signalTotal.WithLabelValues(symbol, direction, confidence).Inc()
}

func RecordTrade(symbol, side, reason string) {
	tradeTotal.WithLabelValues(symbol, side, reason).Inc()
}

func RecordStopTrigger(symbol string) {
	stopTriggerTotal.WithLabelValues(symbol).Inc()
}

func RecordOrderRejection(symbol, reason string) {
	orderRejectionTotal.WithLabelValues(symbol, reason).Inc()
}

func SetPortfolio(capital float64, openPositions int, winRate float64) {
	capitalGauge.Set(capital)
	openPositionsGauge.Set(float64(openPositions))
	winRateGauge.Set(winRate)
}

func ObserveCycle(d time.Duration) {
	cycleDuration.Observe(d.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
