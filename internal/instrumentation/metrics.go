package instrumentation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the valuation service.
type Metrics struct {
	// Price oracle
	OracleRequests  *prometheus.CounterVec
	OracleLatencyMs prometheus.Histogram
	OracleRetries   *prometheus.CounterVec

	// Fee accrual
	AccrualsTotal    *prometheus.CounterVec
	ExcludedAssets   prometheus.Counter
	BatchRuns        *prometheus.CounterVec
	BatchDurationSec prometheus.Histogram

	// Ingestion
	TicksIngested prometheus.Counter

	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OracleRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_oracle_requests_total",
			Help: "Price oracle HTTP requests by outcome",
		}, []string{"outcome"}),

		OracleLatencyMs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vault_oracle_latency_ms",
			Help:    "Price oracle request latency in milliseconds",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),

		OracleRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_oracle_retries_total",
			Help: "Price oracle retries by reason",
		}, []string{"reason"}),

		AccrualsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_fee_accruals_total",
			Help: "Fee accrual calculations by outcome",
		}, []string{"outcome"}),

		// Optional assets left out of a live GAV because they had no price
		ExcludedAssets: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_gav_excluded_assets_total",
			Help: "Optional basket assets excluded from live GAV for lack of a price",
		}),

		BatchRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_fee_batch_runs_total",
			Help: "Batch fee recalculation runs by outcome",
		}, []string{"outcome"}),

		BatchDurationSec: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vault_fee_batch_duration_seconds",
			Help:    "Wall time of a batch fee recalculation run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),

		TicksIngested: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_price_ticks_ingested_total",
			Help: "Price ticks stored from the ingestion topic",
		}),

		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_errors_total",
			Help: "Total number of errors by component and type",
		}, []string{"component", "error_type"}),
	}
}

// ObserveOracleRequest records one oracle request
func (m *Metrics) ObserveOracleRequest(outcome string, elapsed time.Duration) {
	m.OracleRequests.WithLabelValues(outcome).Inc()
	m.OracleLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

// ObserveOracleRetry counts an oracle retry
func (m *Metrics) ObserveOracleRetry(reason string) {
	m.OracleRetries.WithLabelValues(reason).Inc()
}

// RecordAccrual counts a fee accrual calculation
func (m *Metrics) RecordAccrual(outcome string, excluded int) {
	m.AccrualsTotal.WithLabelValues(outcome).Inc()
	if excluded > 0 {
		m.ExcludedAssets.Add(float64(excluded))
	}
}

// RecordBatchRun records a finished, skipped or failed batch run
func (m *Metrics) RecordBatchRun(outcome string, elapsed time.Duration) {
	m.BatchRuns.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		m.BatchDurationSec.Observe(elapsed.Seconds())
	}
}

// RecordTicksIngested counts stored ticks
func (m *Metrics) RecordTicksIngested(n int) {
	m.TicksIngested.Add(float64(n))
}

// RecordError increments the error counter
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
