// Package pane declares the closed set of webview flow steps and their wire
// contracts.
//
// A pane is a tagged variant identified by name. Its render props are what
// the client needs to display the step; its submit props are what the client
// must send back to advance. Every pane can additionally carry error_msg,
// error_code, and notice_msg inside render_props, and a last_updated_at
// timestamp so clients can detect stale renders.
//
// # Contract evolution
//
// The variant set is closed and the union stays discriminated: no two
// variants share a name. Contracts evolve additively only — optional fields
// may be introduced, but no field may be removed or have its required-ness
// tightened without a new variant. Submissions produced against an older
// contract must keep validating forever.
//
// # What this package must NOT do
//
//   - Implement transitions; the engine owns the state machine.
//   - Import paneflow or perform I/O.
package pane
