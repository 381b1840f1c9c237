// Package paneflow is an embeddable engine that drives account-connection
// webviews through a closed set of panes.
//
// The engine owns the state machine: it loads a flow from Redis, validates
// the client submission against the current pane's contract, calls the
// third-party provider, and commits the superseding pane together with any
// domain events the transition implies. Hosts embed the engine behind their
// own transport; paneflow exposes no HTTP surface.
//
// # Architecture boundaries
//
//   - paneflow (root): engine, builder, config, outcomes, events, metrics.
//   - pane, field, twofactor: pure wire contracts, no I/O.
//   - session: Redis persistence for flow records.
//   - callback: signed state for third-party redirect legs.
//   - metrics/export: optional Prometheus and OpenTelemetry bridges.
//
// # Failure contract
//
// Recoverable problems (wrong password, bad code, missing field) re-render
// the current pane with an error code from the closed taxonomy. The only
// fatal class is structural: a submission whose present keys violate the
// declared contract fails with a [TransitionError] wrapping
// [ErrSchemaMismatch], and the flow does not move.
//
// # What this package must NOT do
//
//   - Serve HTTP or render UI.
//   - Store provider credentials beyond the life of a transition.
//   - Emit an event more than once per committed transition.
package paneflow
