package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// CoreMetrics groups the instruments emitted by the cache, fetch and
// mutation layers. A nil *CoreMetrics is safe to record against, so wiring
// telemetry stays optional for embedders.
type CoreMetrics struct {
	cacheLookups     metric.Int64Counter
	invalidations    metric.Int64Counter
	fetches          metric.Int64Counter
	fetchRetries     metric.Int64Counter
	fetchDiscards    metric.Int64Counter
	flightDedups     metric.Int64Counter
	fetchLatency     metric.Float64Histogram
	mutationOutcomes metric.Int64Counter
}

// NewCoreMetrics registers rosterview instruments on the global meter provider.
func NewCoreMetrics() *CoreMetrics {
	meter := otel.Meter("rosterview.core")

	m := &CoreMetrics{
		cacheLookups:     nil,
		invalidations:    nil,
		fetches:          nil,
		fetchRetries:     nil,
		fetchDiscards:    nil,
		flightDedups:     nil,
		fetchLatency:     nil,
		mutationOutcomes: nil,
	}

	m.cacheLookups, _ = meter.Int64Counter("rosterview_cache_lookups",
		metric.WithDescription("Cache lookups labelled hit, miss or stale"),
		metric.WithUnit("{lookup}"))

	m.invalidations, _ = meter.Int64Counter("rosterview_cache_invalidations",
		metric.WithDescription("Bulk cache invalidations"),
		metric.WithUnit("{invalidation}"))

	m.fetches, _ = meter.Int64Counter("rosterview_fetches",
		metric.WithDescription("Collection fetches issued to the transport"),
		metric.WithUnit("{fetch}"))

	m.fetchRetries, _ = meter.Int64Counter("rosterview_fetch_retries",
		metric.WithDescription("Fetch attempts beyond the first"),
		metric.WithUnit("{retry}"))

	m.fetchDiscards, _ = meter.Int64Counter("rosterview_fetch_discards",
		metric.WithDescription("Completed fetches discarded by the sequencing guard"),
		metric.WithUnit("{discard}"))

	m.flightDedups, _ = meter.Int64Counter("rosterview_singleflight_dedups",
		metric.WithDescription("Concurrent fetches coalesced into one network call"),
		metric.WithUnit("{dedup}"))

	m.fetchLatency, _ = meter.Float64Histogram("rosterview_fetch_latency",
		metric.WithDescription("Latency of successful collection fetches"),
		metric.WithUnit("ms"))

	m.mutationOutcomes, _ = meter.Int64Counter("rosterview_mutation_outcomes",
		metric.WithDescription("Mutation attempts labelled success, error or conflict"),
		metric.WithUnit("{mutation}"))

	return m
}

// RecordCacheLookup counts a cache lookup outcome for the fingerprint hash.
func (m *CoreMetrics) RecordCacheLookup(ctx context.Context, fingerprint uint64, result string) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		AttrFingerprint.String(formatFingerprint(fingerprint)),
		AttrResult.String(result),
	))
}

// RecordInvalidation counts a bulk invalidation.
func (m *CoreMetrics) RecordInvalidation(ctx context.Context) {
	if m == nil || m.invalidations == nil {
		return
	}
	m.invalidations.Add(ctx, 1)
}

// RecordFetch counts one transport fetch and its latency on success.
func (m *CoreMetrics) RecordFetch(ctx context.Context, fingerprint uint64, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		AttrFingerprint.String(formatFingerprint(fingerprint)),
		AttrResult.String(result),
	)
	if m.fetches != nil {
		m.fetches.Add(ctx, 1, attrs)
	}
	if result == ResultSuccess && m.fetchLatency != nil {
		m.fetchLatency.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	}
}

// RecordRetry counts a retry attempt.
func (m *CoreMetrics) RecordRetry(ctx context.Context, fingerprint uint64, attempt int) {
	if m == nil || m.fetchRetries == nil {
		return
	}
	m.fetchRetries.Add(ctx, 1, metric.WithAttributes(
		AttrFingerprint.String(formatFingerprint(fingerprint)),
		AttrAttempt.Int(attempt),
	))
}

// RecordDiscard counts a response dropped by the sequencing guard.
func (m *CoreMetrics) RecordDiscard(ctx context.Context, fingerprint uint64) {
	if m == nil || m.fetchDiscards == nil {
		return
	}
	m.fetchDiscards.Add(ctx, 1, metric.WithAttributes(
		AttrFingerprint.String(formatFingerprint(fingerprint)),
	))
}

// RecordDedup counts a coalesced concurrent fetch.
func (m *CoreMetrics) RecordDedup(ctx context.Context, fingerprint uint64) {
	if m == nil || m.flightDedups == nil {
		return
	}
	m.flightDedups.Add(ctx, 1, metric.WithAttributes(
		AttrFingerprint.String(formatFingerprint(fingerprint)),
	))
}

// RecordMutation counts a mutation outcome.
func (m *CoreMetrics) RecordMutation(ctx context.Context, fingerprint uint64, result string, code string) {
	if m == nil || m.mutationOutcomes == nil {
		return
	}
	attrs := []metric.AddOption{metric.WithAttributes(
		AttrFingerprint.String(formatFingerprint(fingerprint)),
		AttrResult.String(result),
		AttrErrorCode.String(code),
	)}
	m.mutationOutcomes.Add(ctx, 1, attrs...)
}

func formatFingerprint(sum uint64) string {
	return strconv.FormatUint(sum, 16)
}
