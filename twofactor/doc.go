// Package twofactor declares the second-factor verification channels a flow
// can offer (SMS, authenticator OTP, email).
//
// Every option carries a delivery-specific identifier and a common code
// length. Options are resolved back from a client selection by a stable
// unique id, so a selection always maps to exactly one option.
//
// # What this package must NOT do
//
//   - Verify codes; the third-party provider owns verification.
//   - Import paneflow or any sibling package.
package twofactor
