package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Record metrics
	RecordsApplied   *prometheus.CounterVec
	RecordsRejected  *prometheus.CounterVec
	RecordsMalformed prometheus.Counter

	// Run metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	AccountsTotal  prometheus.Gauge
	LockedAccounts prometheus.Gauge
	ExportErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Idempotency metrics
	IdempotentReplays prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all Prometheus metrics and registers them with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Record metrics
		RecordsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_records_applied_total",
				Help: "Total records applied to the ledger by kind",
			},
			[]string{"kind"},
		),
		RecordsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_records_rejected_total",
				Help: "Total records discarded by a ledger rule",
			},
			[]string{"kind", "reason"},
		),
		RecordsMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "txengine_records_malformed_total",
			Help: "Total input records that could not be parsed",
		}),

		// Run metrics
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_runs_total",
				Help: "Total processing runs by outcome",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txengine_run_duration_seconds",
			Help:    "Duration of processing runs",
			Buckets: prometheus.DefBuckets,
		}),
		AccountsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_accounts",
			Help: "Number of accounts in the last completed run",
		}),
		LockedAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_locked_accounts",
			Help: "Number of locked accounts in the last completed run",
		}),
		ExportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_export_errors_total",
				Help: "Total snapshot export failures by exporter",
			},
			[]string{"exporter"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txengine_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_http_in_flight_requests",
			Help: "Current number of HTTP requests being served",
		}),

		IdempotentReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "txengine_idempotent_replays_total",
			Help: "Total batch responses served from the idempotency store",
		}),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
