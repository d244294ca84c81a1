// Package otel provides OpenTelemetry metric exporter bindings for goCredSync counters
// and histograms.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each goCredSync
// metric and Int64ObservableGauge per histogram bucket. A single callback reads
// [goCredSync.Store.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate store state.
package otel
