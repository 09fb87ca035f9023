// Package metrics provides Prometheus metrics for the verification service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all verification service metrics.
type Metrics struct {
	// Verification outcome metrics
	RequestsTotal *prometheus.CounterVec // Verifications by outcome (valid, invalid)
	FailuresTotal *prometheus.CounterVec // Invalid verdicts by reason (format, checksum, birth_date)

	// Latency metrics
	VerificationDurationSeconds prometheus.Histogram // Single-code verification latency

	// Batch metrics
	BatchSize prometheus.Histogram // Codes per batch request

	// Cache metrics
	CacheHitsTotal   prometheus.Counter // Verdicts served from the cache
	CacheMissesTotal prometheus.Counter // Verdicts computed fresh
	CacheEntries     prometheus.Gauge   // Current number of cached verdicts
	CachePurgesTotal prometheus.Counter // Admin cache purge operations

	// Attestation metrics
	AttestationsIssuedTotal prometheus.Counter // Signed receipts issued
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hetu_verification_requests_total",
			Help: "Total number of identity code verifications by outcome",
		}, []string{"outcome"}),

		FailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hetu_verification_failures_total",
			Help: "Total number of invalid verdicts by failure reason",
		}, []string{"reason"}),

		VerificationDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hetu_verification_duration_seconds",
			Help:    "Duration of single-code verification including cache lookup",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05}, // Pure-CPU path; sub-5ms expected
		}),

		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hetu_verification_batch_size",
			Help:    "Number of identity codes per batch verification request",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),

		CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hetu_verification_cache_hits_total",
			Help: "Total number of verdicts served from the in-memory cache",
		}),

		CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hetu_verification_cache_misses_total",
			Help: "Total number of verdicts computed without a cache entry",
		}),

		CacheEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hetu_verification_cache_entries",
			Help: "Current number of verdicts held in the in-memory cache",
		}),

		CachePurgesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hetu_verification_cache_purges_total",
			Help: "Total number of admin cache purge operations",
		}),

		AttestationsIssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hetu_attestations_issued_total",
			Help: "Total number of signed verification receipts issued",
		}),
	}
}

// RecordVerification records a verification outcome. Invalid verdicts also
// increment the per-reason failure counter.
func (m *Metrics) RecordVerification(valid bool, reason string) {
	if valid {
		m.RequestsTotal.WithLabelValues("valid").Inc()
		return
	}
	m.RequestsTotal.WithLabelValues("invalid").Inc()
	m.FailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveVerificationDuration records the duration of a single verification.
func (m *Metrics) ObserveVerificationDuration(durationSeconds float64) {
	m.VerificationDurationSeconds.Observe(durationSeconds)
}

// ObserveBatchSize records the number of codes in a batch request.
func (m *Metrics) ObserveBatchSize(size int) {
	m.BatchSize.Observe(float64(size))
}

// RecordCacheHit records a verdict served from the cache.
func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

// RecordCacheMiss records a verdict computed without a cache entry.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

// SetCacheEntries updates the cached-verdict gauge.
func (m *Metrics) SetCacheEntries(entries int) {
	m.CacheEntries.Set(float64(entries))
}

// RecordCachePurge records an admin cache purge.
func (m *Metrics) RecordCachePurge() {
	m.CachePurgesTotal.Inc()
}

// RecordAttestationIssued records an issued verification receipt.
func (m *Metrics) RecordAttestationIssued() {
	m.AttestationsIssuedTotal.Inc()
}

// CacheHitRate calculates the cache hit rate.
// This is a helper for testing; in production, use Prometheus queries.
func CacheHitRate(hits, misses float64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return hits / total
}
