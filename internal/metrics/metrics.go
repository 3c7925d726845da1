// Package metrics exposes Prometheus series for the feed, the decision pipeline and order flow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	TicksRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_rejected_total", Help: "Ticks dropped for an invalid price"},
		[]string{"symbol"},
	)
	Reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ws_reconnects_total", Help: "Market feed reconnect attempts"},
		[]string{"provider"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Non-empty policy decisions by action"},
		[]string{"symbol", "action"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	OrdersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_failed_total", Help: "Orders the gateway did not confirm"},
		[]string{"symbol", "side"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_total", Help: "Closed round trips by exit reason"},
		[]string{"symbol", "reason"},
	)
	MarkPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "mark_price", Help: "Last accepted mark price"},
		[]string{"symbol"},
	)
	PositionSide = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "position_side", Help: "Model position: -1 short, 0 flat, 1 long"},
		[]string{"symbol"},
	)
	UnrealizedPnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "unrealized_pnl", Help: "Unrealized PnL of the open position in quote currency"},
		[]string{"symbol"},
	)
	RealizedPnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "realized_pnl", Help: "Cumulative realized PnL in quote currency"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, TicksRejected, Reconnects, DecisionsTotal,
		OrdersTotal, OrdersFailed, TradesTotal,
		MarkPrice, PositionSide, UnrealizedPnL, RealizedPnL,
	)
}

// Serve exposes /metrics on addr in the background. An empty addr disables the listener.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	if addr == "" {
		return srv
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
