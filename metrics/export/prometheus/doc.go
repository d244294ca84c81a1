// Package prometheus provides Prometheus collectors for goCredSync metrics.
//
// [NewPrometheusExporter] accepts a [goCredSync.Store] and exposes an [http.Handler]
// that renders all goCredSync counters and histograms in Prometheus text exposition
// format. Counter names are prefixed gocredsync_*_total; the single histogram is
// gocredsync_store_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate store state.
package prometheus
