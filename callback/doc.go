// Package callback signs and verifies the state parameter carried through a
// third-party redirect leg.
//
// A redirect pane hands the browser to the provider with a signed state
// token; when the provider calls back, the token proves the callback belongs
// to a live flow and has not been tampered with or replayed across webviews.
//
// # What this package must NOT do
//
//   - Talk to Redis or any store; nonce bookkeeping belongs to the engine.
//   - Decide flow transitions.
package callback
