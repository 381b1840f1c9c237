// Package field declares the atomic input controls rendered by a fields pane.
//
// Descriptors are pure data: presentation metadata (label, required, disabled,
// read-only, help text) plus a value type. The only behavior is input
// validation — required-ness, regex, and option membership — which the engine
// applies before accepting a fields-pane submission.
//
// # What this package must NOT do
//
//   - Import paneflow or any sibling package.
//   - Perform I/O.
package field
