package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	TransfersTotal     *prometheus.CounterVec
	ReviewsTotal       *prometheus.CounterVec
	ReconcileRunsTotal *prometheus.CounterVec
	PendingOnChain     prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campus_wallet",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests partitioned by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "campus_wallet",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency partitioned by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		TransfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campus_wallet",
				Subsystem: "ledger",
				Name:      "transfers_total",
				Help:      "Total transfer attempts partitioned by result.",
			},
			[]string{"result"},
		),
		ReviewsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campus_wallet",
				Subsystem: "workflow",
				Name:      "reviews_total",
				Help:      "Total withdrawal/settlement reviews partitioned by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		ReconcileRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campus_wallet",
				Subsystem: "reconciler",
				Name:      "runs_total",
				Help:      "Total reconciler passes partitioned by result.",
			},
			[]string{"result"},
		),
		PendingOnChain: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "campus_wallet",
				Subsystem: "reconciler",
				Name:      "pending_on_chain",
				Help:      "Ledger rows currently awaiting chain confirmation.",
			},
		),
	}
}
