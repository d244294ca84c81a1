package internaldefs

import (
	goCredSync "github.com/MrEthical07/goCredSync"
)

// CounterDef defines a public type used by goCredSync APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goCredSync.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goCredSync APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goCredSync.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the sync engine.
var CounterDefs = []CounterDef{
	{ID: goCredSync.MetricStoreSuccess, Name: "gocredsync_store_success_total", Help: "Successful session store operations."},
	{ID: goCredSync.MetricStoreFailure, Name: "gocredsync_store_failure_total", Help: "Failed session store operations."},
	{ID: goCredSync.MetricLoadSuccess, Name: "gocredsync_load_success_total", Help: "Successful session load operations."},
	{ID: goCredSync.MetricLoadFailure, Name: "gocredsync_load_failure_total", Help: "Failed session load operations."},
	{ID: goCredSync.MetricDeleteSuccess, Name: "gocredsync_delete_success_total", Help: "Successful session delete operations."},
	{ID: goCredSync.MetricDeleteFailure, Name: "gocredsync_delete_failure_total", Help: "Failed session delete operations."},
	{ID: goCredSync.MetricRetryAttempt, Name: "gocredsync_retry_attempt_total", Help: "Retries of transient remote failures."},
	{ID: goCredSync.MetricRateLimited, Name: "gocredsync_rate_limited_total", Help: "Remote calls rejected by rate limiting."},
	{ID: goCredSync.MetricReplayDetected, Name: "gocredsync_replay_detected_total", Help: "Loads rejected as replayed sessions."},
	{ID: goCredSync.MetricTamperDetected, Name: "gocredsync_tamper_detected_total", Help: "Loads rejected for failed integrity or decryption."},
	{ID: goCredSync.MetricSessionExpired, Name: "gocredsync_session_expired_total", Help: "Loads rejected as expired sessions."},
	{ID: goCredSync.MetricClientRefreshed, Name: "gocredsync_client_refreshed_total", Help: "Remote client handles rebuilt after authentication failure."},
}

// HistogramDefs is an exported constant or variable used by the sync engine.
var HistogramDefs = []HistogramDef{
	{ID: goCredSync.MetricStoreLatency, Name: "gocredsync_store_latency_seconds", Help: "Store latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the sync engine.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the sync engine.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
