package domain

import (
	"encoding/json"
	"testing"
)

func TestMatchStateJSONRoundTrip(t *testing.T) {
	raw := []byte(`{"turn":3,"board":[{"card":"dragon","atk":5}],"hands":{"p1":["a","b"]},"over":false}`)

	var m MatchState
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields := m.Fields()
	if fields["turn"] != json.Number("3") || fields["over"] != false {
		t.Fatalf("fields = %v", fields)
	}
	board, ok := fields["board"].([]any)
	if !ok || len(board) != 1 {
		t.Fatalf("board = %v", fields["board"])
	}

	out, err := json.Marshal(&m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != string(raw) {
		t.Fatalf("Marshal = %s, want %s", out, raw)
	}
	var again MatchState
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("Unmarshal again: %v", err)
	}
	if !again.Equal(&m) {
		t.Fatalf("round trip changed payload: %s", out)
	}
}

func TestMatchStateKeepsLargeIntegers(t *testing.T) {
	raw := `{"cardUid":9007199254740993,"seed":12345678901234567890}`

	var m MatchState
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	out, err := json.Marshal(struct {
		MatchState *MatchState `json:"matchState"`
	}{&m})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"matchState":` + raw + `}`; string(out) != want {
		t.Fatalf("Marshal = %s, want %s", out, want)
	}
	if got := m.Fields()["cardUid"]; got != json.Number("9007199254740993") {
		t.Fatalf("cardUid = %v", got)
	}
}

func TestMatchStateRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"turn"`, `42`, `null`, `{"turn":`} {
		var m MatchState
		if err := m.UnmarshalJSON([]byte(raw)); err == nil {
			t.Fatalf("UnmarshalJSON(%s) accepted a non-object", raw)
		}
	}
}

func TestMatchStateNilMarshalsAsEmptyObject(t *testing.T) {
	var m *MatchState
	out, err := m.MarshalJSON()
	if err != nil || string(out) != "{}" {
		t.Fatalf("MarshalJSON = %s, %v", out, err)
	}
	if m.Fields() != nil {
		t.Fatal("nil snapshot should have no fields")
	}
}

func TestMatchStateCloneIsIndependent(t *testing.T) {
	m, err := NewMatchState(map[string]any{"turn": 1})
	if err != nil {
		t.Fatalf("NewMatchState: %v", err)
	}
	clone := m.Clone()
	if !clone.Equal(m) {
		t.Fatal("clone differs from original")
	}

	if err := json.Unmarshal([]byte(`{"turn":2}`), clone); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.Fields()["turn"] != json.Number("1") {
		t.Fatalf("original changed: %v", m.Fields())
	}
}

func TestMatchStateEqual(t *testing.T) {
	a, _ := NewMatchState(map[string]any{"turn": 1, "active": 0})
	b := &MatchState{}
	if err := b.UnmarshalJSON([]byte(`{ "active": 0, "turn": 1 }`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	c, _ := NewMatchState(map[string]any{"turn": 2, "active": 0})

	tests := []struct {
		name string
		x, y *MatchState
		want bool
	}{
		{"same payload, other key order", a, b, true},
		{"different payload", a, c, false},
		{"both nil", nil, nil, true},
		{"one nil", a, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.x.Equal(tt.y); got != tt.want {
				t.Fatalf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewMatchStateRejectsUnsupportedValues(t *testing.T) {
	if _, err := NewMatchState(map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("expected error for unsupported value")
	}
}
