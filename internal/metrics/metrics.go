// Package metrics expone los contadores Prometheus del bot, servidos en
// /metrics en formato de exposición de texto:
//
//	bot_cycles_total                  – ciclos de evaluación completados
//	bot_decisions_total{outcome}      – decisiones por resultado (placed|rejected|...)
//	bot_orders_placed_total{side}     – órdenes enviadas al exchange
//	bot_orders_terminal_total{status} – órdenes que alcanzaron estado terminal
//	bot_trades_settled_total{result}  – liquidaciones por resultado (win|loss)
//	bot_spent_today_dollars           – capital comprometido hoy (gauge)
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_cycles_total",
		Help: "Evaluation cycles completed",
	})

	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_decisions_total",
		Help: "Decisions per outcome",
	}, []string{"outcome"})

	OrdersPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_orders_placed_total",
		Help: "Limit orders submitted",
	}, []string{"side"})

	OrdersTerminal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_orders_terminal_total",
		Help: "Orders reaching a terminal status",
	}, []string{"status"})

	TradesSettled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_trades_settled_total",
		Help: "Settled trades by result",
	}, []string{"result"})

	SpentToday = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bot_spent_today_dollars",
		Help: "Capital committed today in dollars",
	})
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		Decisions,
		OrdersPlaced,
		OrdersTerminal,
		TradesSettled,
		SpentToday,
	)
}

// Serve sirve el endpoint /metrics en la dirección dada. Bloquea: pensado
// para correr en su propia goroutine desde main.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
