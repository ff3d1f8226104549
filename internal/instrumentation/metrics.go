package instrumentation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics of the trading bot.
type Metrics struct {
	CyclesTotal        prometheus.Counter
	CycleDuration      prometheus.Histogram
	CoinFailuresTotal  *prometheus.CounterVec
	OrdersTotal        *prometheus.CounterVec
	ProtectionFailures prometheus.Counter
	CoinScore          *prometheus.GaugeVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "coinrank_cycles_total",
			Help: "Total number of completed decision cycles",
		}),

		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "coinrank_cycle_duration_seconds",
			Help:    "Wall time of a decision cycle in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		// per coin, by the stage that failed and the error kind
		CoinFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coinrank_coin_failures_total",
			Help: "Total number of coins skipped in a cycle by stage and error kind",
		}, []string{"stage", "kind"}),

		OrdersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coinrank_orders_total",
			Help: "Total number of market orders by side and result",
		}, []string{"side", "result"}),

		ProtectionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "coinrank_protection_failures_total",
			Help: "Buys that filled without their take profit or stop loss orders",
		}),

		CoinScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coinrank_coin_score",
			Help: "Latest composite score per coin",
		}, []string{"coin"}),
	}
}

// RecordCycle records a finished cycle.
func (m *Metrics) RecordCycle(elapsed time.Duration) {
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(elapsed.Seconds())
}

// RecordCoinFailure increments the failure counter.
func (m *Metrics) RecordCoinFailure(stage, kind string) {
	m.CoinFailuresTotal.WithLabelValues(stage, kind).Inc()
}

// RecordOrder counts a market order attempt.
func (m *Metrics) RecordOrder(side, result string) {
	m.OrdersTotal.WithLabelValues(side, result).Inc()
}

// RecordProtectionFailure counts a buy left without protective orders.
func (m *Metrics) RecordProtectionFailure() {
	m.ProtectionFailures.Inc()
}

// RecordScore sets the latest score of coin.
func (m *Metrics) RecordScore(coin string, score float64) {
	m.CoinScore.WithLabelValues(coin).Set(score)
}
