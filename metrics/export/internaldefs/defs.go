package internaldefs

import (
	paneflow "github.com/connectkit/paneflow"
)

// CounterDef defines a public type used by paneflow APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   paneflow.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by paneflow APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   paneflow.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the flow engine.
var CounterDefs = []CounterDef{
	{ID: paneflow.MetricFlowStarted, Name: "paneflow_flow_started_total", Help: "Started connect-webview flows."},
	{ID: paneflow.MetricFlowFinished, Name: "paneflow_flow_finished_total", Help: "Flows that reached the finished pane with finalization complete."},
	{ID: paneflow.MetricAdvanceSuccess, Name: "paneflow_advance_success_total", Help: "Submissions that produced a committed transition."},
	{ID: paneflow.MetricAdvanceValidationError, Name: "paneflow_advance_validation_error_total", Help: "Submissions rejected with a recoverable validation error."},
	{ID: paneflow.MetricAdvanceRateLimited, Name: "paneflow_advance_rate_limited_total", Help: "Rate-limited submissions."},
	{ID: paneflow.MetricSchemaMismatch, Name: "paneflow_schema_mismatch_total", Help: "Submissions rejected as structurally incompatible with the pane contract."},
	{ID: paneflow.MetricBadCredentials, Name: "paneflow_bad_credentials_total", Help: "Login attempts the provider rejected for bad credentials."},
	{ID: paneflow.MetricTwoFactorInitiated, Name: "paneflow_two_factor_initiated_total", Help: "Two-factor code deliveries triggered."},
	{ID: paneflow.MetricTwoFactorBadCode, Name: "paneflow_two_factor_bad_code_total", Help: "Two-factor codes the provider rejected."},
	{ID: paneflow.MetricFinalizeFailure, Name: "paneflow_finalize_failure_total", Help: "Failed post-connection finalization attempts."},
	{ID: paneflow.MetricEventEmitted, Name: "paneflow_event_emitted_total", Help: "Domain events handed to the dispatcher."},
	{ID: paneflow.MetricEventRejected, Name: "paneflow_event_rejected_total", Help: "Events rejected for an unregistered type."},
}

// HistogramDefs is an exported constant or variable used by the flow engine.
var HistogramDefs = []HistogramDef{
	{ID: paneflow.MetricAdvanceLatency, Name: "paneflow_advance_latency_seconds", Help: "Advance latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the flow engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the flow engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
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
