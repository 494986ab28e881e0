package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	OrdersTotal     *prometheus.CounterVec // labels: result=filled|rejected|retried
	CyclesTotal     *prometheus.CounterVec // labels: result=ok|skipped|failed|halted
	QuoteCacheTotal *prometheus.CounterVec // labels: result=hit|miss
	QuoteFallbacks  prometheus.Counter

	CycleDur prometheus.Histogram

	Equity        prometheus.Gauge
	Cash          prometheus.Gauge
	OpenPositions prometheus.Gauge
	MarketState   prometheus.Gauge // 0=closed, 1=open
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fund_orders_total",
			Help: "Orders processed, by outcome",
		}, []string{"result"}),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fund_cycles_total",
			Help: "Trading cycles run, by outcome",
		}, []string{"result"}),
		QuoteCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fund_quote_cache_total",
			Help: "History cache lookups, by result",
		}, []string{"result"}),
		QuoteFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fund_quote_fallbacks_total",
			Help: "Times the fallback quote source was consulted",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fund_cycle_duration_seconds",
			Help:    "Wall time of one full trading cycle",
			Buckets: prometheus.DefBuckets,
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fund_equity_dollars",
			Help: "Portfolio equity from the latest valuation",
		}),
		Cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fund_cash_dollars",
			Help: "Cash balance from the latest valuation",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fund_open_positions",
			Help: "Number of open positions",
		}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fund_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
	}

	prometheus.MustRegister(
		m.OrdersTotal,
		m.CyclesTotal,
		m.QuoteCacheTotal,
		m.QuoteFallbacks,
		m.CycleDur,
		m.Equity,
		m.Cash,
		m.OpenPositions,
		m.MarketState,
	)

	return m
}
