package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/redstonesim/internal/ir"
	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/sim"
)

// marshalRequest renders req as canonical JSON TEXT in the wire format, so
// a stored request can be fed back through the decoder unchanged.
func marshalRequest(req sim.Request) (string, string, error) {
	doc := protocol.EncodeRequest(req)
	data, err := ir.Canonicalize(doc)
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}
	digest, err := ir.RequestDigest(doc)
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}
	return string(data), digest, nil
}

// unmarshalRequest parses a stored request. It goes through the full
// decoder so a corrupted row fails the same way a bad request would.
func unmarshalRequest(data string) (sim.Request, error) {
	req, err := protocol.DecodeSimulate([]byte(data))
	if err != nil {
		return sim.Request{}, fmt.Errorf("unmarshal request: %w", err)
	}
	return req, nil
}

// marshalChanges converts one tick's changes to canonical JSON TEXT.
func marshalChanges(changes []recorder.Change) (string, error) {
	data, err := ir.Canonicalize(changes)
	if err != nil {
		return "", fmt.Errorf("marshal changes: %w", err)
	}
	return string(data), nil
}

func unmarshalChanges(data string) ([]recorder.Change, error) {
	var changes []recorder.Change
	if err := json.Unmarshal([]byte(data), &changes); err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	return changes, nil
}

func marshalWarnings(ws []protocol.Warning) (string, error) {
	if len(ws) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return "", fmt.Errorf("marshal warnings: %w", err)
	}
	return string(data), nil
}

func unmarshalWarnings(data string) ([]protocol.Warning, error) {
	var ws []protocol.Warning
	if err := json.Unmarshal([]byte(data), &ws); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	if len(ws) == 0 {
		return nil, nil
	}
	return ws, nil
}
