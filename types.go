package paneflow

import "github.com/connectkit/paneflow/pane"

// Submission is the raw key-value payload a client sends against the current
// pane's submit contract. Keys the contract does not declare are tolerated.
type Submission = map[string]any

// Result is what every engine operation hands back to the host: the pane to
// render next and whether the flow has reached its terminal state.
//
// Result instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Result struct {
	FlowID string
	Pane   pane.Pane
	Done   bool
}
