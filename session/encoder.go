package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CurrentSchemaVersion is the version byte prefixed to every encoded flow
// record. Bump only for layout changes a JSON decoder cannot absorb.
const CurrentSchemaVersion byte = 1

// ErrFlowCorrupt is returned when a stored flow blob cannot be decoded.
var ErrFlowCorrupt = errors.New("flow record corrupt")

// Encode serializes a flow as a version byte followed by its JSON body.
func Encode(f *Flow) ([]byte, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlowCorrupt, err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, CurrentSchemaVersion)
	out = append(out, body...)
	return out, nil
}

// Decode parses an encoded flow record, rejecting blobs with an unknown
// schema version rather than guessing at their layout.
func Decode(data []byte) (*Flow, error) {
	if len(data) < 2 {
		return nil, ErrFlowCorrupt
	}
	if data[0] != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: unknown schema version %d", ErrFlowCorrupt, data[0])
	}
	var f Flow
	if err := json.Unmarshal(data[1:], &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlowCorrupt, err)
	}
	return &f, nil
}
