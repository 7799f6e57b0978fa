package domain

import (
	"encoding/json"
	"fmt"
)

// IndexAction enumerates the allowed index actions.
type IndexAction string

const (
	ActionCreate IndexAction = "CREATE"
	ActionUpdate IndexAction = "UPDATE"
	ActionDelete IndexAction = "DELETE"
)

// Valid reports whether a is one of the three recognized actions.
func (a IndexAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// IndexOp describes one index operation. It is carried as the JSON payload
// of an IndexJob row:
//
//	{"action":"UPDATE","name":"users","type":"user","keys":["1","2"]}
//
// An empty keys list means the operation applies to the entire index,
// except for Delete, which always requires explicit keys.
type IndexOp struct {
	Action IndexAction `json:"action"`
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Keys   []string    `json:"keys"`
}

// EncodeIndexOp serializes op into the canonical job payload. Nil keys are
// normalized to an empty list so the round-trip law holds.
func EncodeIndexOp(op IndexOp) ([]byte, error) {
	if !op.Action.Valid() {
		return nil, fmt.Errorf("op=indexop.encode: action %q: %w", op.Action, ErrInvalidData)
	}
	if op.Keys == nil {
		op.Keys = []string{}
	}
	b, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("op=indexop.encode: %w", err)
	}
	return b, nil
}

// DecodeIndexOp parses a job payload. The decoded action is authoritative
// for execution regardless of which API created the job. Malformed JSON,
// unknown actions, missing name/type, and Delete without keys all fail with
// ErrDecode.
func DecodeIndexOp(data []byte) (IndexOp, error) {
	var op IndexOp
	if err := json.Unmarshal(data, &op); err != nil {
		return IndexOp{}, fmt.Errorf("op=indexop.decode: %v: %w", err, ErrDecode)
	}
	if !op.Action.Valid() {
		return IndexOp{}, fmt.Errorf("op=indexop.decode: action %q: %w", op.Action, ErrDecode)
	}
	if op.Name == "" {
		return IndexOp{}, fmt.Errorf("op=indexop.decode: empty index name: %w", ErrDecode)
	}
	if op.Type == "" {
		return IndexOp{}, fmt.Errorf("op=indexop.decode: empty document type: %w", ErrDecode)
	}
	// Delete-all is not supported: a delete over the whole index would have
	// to enumerate keys the payload does not carry.
	if op.Action == ActionDelete && len(op.Keys) == 0 {
		return IndexOp{}, fmt.Errorf("op=indexop.decode: delete requires keys: %w", ErrDecode)
	}
	if op.Keys == nil {
		op.Keys = []string{}
	}
	return op, nil
}
