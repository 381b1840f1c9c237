// Package session persists flow state between client round trips.
//
// A flow is the engine's unit of persistence: one record per connect webview
// attempt, holding the current pane and the accumulated context gathered from
// provider calls and client submissions. The store is Redis-backed; records
// carry a schema version byte so older blobs are detected rather than
// misparsed.
//
// # Architecture boundaries
//
//   - This package owns encoding and Redis access for flow records.
//   - It never inspects submissions and never decides transitions.
//
// # What this package must NOT do
//
//   - Emit domain events.
//   - Call providers.
package session
