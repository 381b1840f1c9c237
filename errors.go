package paneflow

import (
	"errors"
	"fmt"

	"github.com/connectkit/paneflow/pane"
)

var (
	// ErrEngineNotReady is an exported constant or variable used by the flow engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrUnknownPane is an exported constant or variable used by the flow engine.
	ErrUnknownPane = errors.New("unknown pane name")
	// ErrSchemaMismatch is an exported constant or variable used by the flow engine.
	ErrSchemaMismatch = errors.New("submission does not match the pane contract")
	// ErrFlowTerminal is an exported constant or variable used by the flow engine.
	ErrFlowTerminal = errors.New("flow already finished")
	// ErrFlowNotFound is an exported constant or variable used by the flow engine.
	ErrFlowNotFound = errors.New("flow not found")
	// ErrProviderUnavailable is an exported constant or variable used by the flow engine.
	ErrProviderUnavailable = errors.New("provider backend unavailable")
	// ErrNothingPending is an exported constant or variable used by the flow engine.
	ErrNothingPending = errors.New("no pending provider outcome for flow")
	// ErrSubmitRateLimited is an exported constant or variable used by the flow engine.
	ErrSubmitRateLimited = errors.New("submissions rate limited")
	// ErrCallbackMismatch is an exported constant or variable used by the flow engine.
	ErrCallbackMismatch = errors.New("callback state does not match flow")
	// ErrChallengeNotFound is an exported constant or variable used by the flow engine.
	ErrChallengeNotFound = errors.New("two-factor challenge not found")
	// ErrChallengeExpired is an exported constant or variable used by the flow engine.
	ErrChallengeExpired = errors.New("two-factor challenge expired")
	// ErrChallengeAttemptsExceeded is an exported constant or variable used by the flow engine.
	ErrChallengeAttemptsExceeded = errors.New("two-factor challenge attempts exceeded")
	// ErrChallengeUnavailable is an exported constant or variable used by the flow engine.
	ErrChallengeUnavailable = errors.New("two-factor challenge backend unavailable")
)

// TransitionError is the fatal error class: a submission or stored pane that
// is structurally incompatible with its declared contract. The flow does not
// advance and no events are emitted.
type TransitionError struct {
	Pane pane.Name
	Err  error
}

// Error describes the error operation and its observable behavior.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition on %s: %v", e.Pane, e.Err)
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *TransitionError) Unwrap() error {
	return e.Err
}

func schemaMismatch(name pane.Name, err error) error {
	return &TransitionError{Pane: name, Err: fmt.Errorf("%w: %v", ErrSchemaMismatch, err)}
}
