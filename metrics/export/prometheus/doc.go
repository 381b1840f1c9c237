// Package prometheus provides Prometheus collectors for paneflow metrics.
//
// [NewPrometheusExporter] accepts a [paneflow.Engine] and exposes an [http.Handler]
// that renders all paneflow counters and histograms in Prometheus text exposition format.
// Counter names are prefixed paneflow_*_total; the single histogram is
// paneflow_advance_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
