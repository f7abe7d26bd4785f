package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var errMatchStateNotObject = errors.New("match state must be a JSON object")

// MatchState is the client-authoritative snapshot of an in-progress match
// (health, board, hands, ...). The coordinator stores and republishes the
// caller's bytes verbatim; the only check applied is that they decode as a
// JSON object.
type MatchState struct {
	raw json.RawMessage
}

// NewMatchState builds a snapshot from plain Go values.
func NewMatchState(fields map[string]any) (*MatchState, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("match state: %w", err)
	}
	m := &MatchState{}
	if err := m.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return m, nil
}

// Fields returns the snapshot as plain Go values. Numbers are json.Number so
// integers beyond float64 precision survive.
func (m *MatchState) Fields() map[string]any {
	if m == nil || len(m.raw) == 0 {
		return nil
	}
	fields, err := decodeFields(m.raw)
	if err != nil {
		return nil
	}
	return fields
}

// Equal reports whether two snapshots carry the same payload, ignoring key order.
func (m *MatchState) Equal(other *MatchState) bool {
	if m == nil || other == nil {
		return m == other
	}
	if bytes.Equal(m.raw, other.raw) {
		return true
	}
	a, errA := decodeFields(m.raw)
	b, errB := decodeFields(other.raw)
	return errA == nil && errB == nil && reflect.DeepEqual(a, b)
}

// Clone returns a deep copy.
func (m *MatchState) Clone() *MatchState {
	if m == nil {
		return nil
	}
	return &MatchState{raw: append(json.RawMessage(nil), m.raw...)}
}

func (m *MatchState) MarshalJSON() ([]byte, error) {
	if m == nil || len(m.raw) == 0 {
		return []byte("{}"), nil
	}
	return m.raw, nil
}

func (m *MatchState) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("match state: %w", errMatchStateNotObject)
	}
	if err := protojson.Unmarshal(trimmed, &structpb.Struct{}); err != nil {
		return fmt.Errorf("match state: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return fmt.Errorf("match state: %w", err)
	}
	m.raw = buf.Bytes()
	return nil
}

func decodeFields(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
