// Package telemetry provides OpenTelemetry instruments for the rosterview core.
package telemetry

import "go.opentelemetry.io/otel/attribute"

// Semantic convention attribute keys for rosterview telemetry.
const (
	// AttrFingerprint carries the compact hash of the cache key being served.
	AttrFingerprint = attribute.Key("view.fingerprint")
	// AttrOperation differentiates core operations (fetch, mutate, prefetch).
	AttrOperation = attribute.Key("operation")
	// AttrResult records the outcome of an operation (hit, miss, success, error class).
	AttrResult = attribute.Key("result")
	// AttrErrorCode categorizes failures by canonical error code.
	AttrErrorCode = attribute.Key("error.code")
	// AttrAttempt annotates retry telemetry with the attempt ordinal.
	AttrAttempt = attribute.Key("attempt")
)

// Result values.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultStale    = "stale"
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultDiscard  = "discarded"
	ResultConflict = "conflict"
)
