package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"tcgtable/internal/app"
	"tcgtable/internal/domain"
)

func TestDecodeTableRequestAcceptsBothTableDataForms(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "object",
			payload: `{"realmID":"r1","tableID":7,"tableData":{"id":7,"state":1,"teams":[{"playerID":"p1","readyState":true,"healthCur":3},{"playerID":"p2","readyState":true}],"matchState":{"turn":4}}}`,
		},
		{
			name:    "string",
			payload: `{"realmID":"r1","tableID":"7","tableData":"{\"id\":7,\"state\":1,\"teams\":[{\"playerID\":\"p1\",\"readyState\":true,\"healthCur\":3},{\"playerID\":\"p2\",\"readyState\":true}],\"matchState\":{\"turn\":4}}"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeTableRequest([]byte(tt.payload))
			if err != nil {
				t.Fatalf("DecodeTableRequest: %v", err)
			}
			key, err := req.Key()
			if err != nil || key.RealmID != "r1" || key.TableID != 7 {
				t.Fatalf("Key = %+v, %v", key, err)
			}
			snap, err := req.Snapshot()
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if snap.State != domain.StateInSession || snap.Teams[0].HealthCur != 3 {
				t.Fatalf("snapshot = %+v", snap)
			}
			if got := snap.MatchState.Fields()["turn"]; got != json.Number("4") {
				t.Fatalf("matchState.turn = %v", got)
			}
		})
	}
}

func TestTableRequestRequiresFields(t *testing.T) {
	req, err := DecodeTableRequest([]byte(`{"tableID":1}`))
	if err != nil {
		t.Fatalf("DecodeTableRequest: %v", err)
	}
	if _, err := req.Key(); !errors.Is(err, app.ErrInvalidRequest) {
		t.Fatalf("Key err = %v, want ErrInvalidRequest", err)
	}
	if _, err := req.Team(); !errors.Is(err, app.ErrInvalidRequest) {
		t.Fatalf("Team err = %v, want ErrInvalidRequest", err)
	}
	if _, err := req.Snapshot(); !errors.Is(err, app.ErrInvalidRequest) {
		t.Fatalf("Snapshot err = %v, want ErrInvalidRequest", err)
	}
}

func TestDecodeTableRequestRejectsMalformed(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"realmID":"r","tableID":"seven"}`,
		`{"realmID":"r","tableID":1,"tableData":"{broken"}`,
		`{"realmID":"r","tableID":1,"tableData":{"matchState":[1,2]}}`,
	} {
		if _, err := DecodeTableRequest([]byte(payload)); !errors.Is(err, app.ErrInvalidRequest) {
			t.Fatalf("DecodeTableRequest(%s) err = %v, want ErrInvalidRequest", payload, err)
		}
	}
}

func TestTeamZeroIsPresent(t *testing.T) {
	req, err := DecodeTableRequest([]byte(`{"realmID":"r","tableID":1,"teamID":0}`))
	if err != nil {
		t.Fatalf("DecodeTableRequest: %v", err)
	}
	if team, err := req.Team(); err != nil || team != 0 {
		t.Fatalf("Team = %d, %v", team, err)
	}
}

func TestNewEndGameResponse(t *testing.T) {
	res := app.EndGameResult{
		Result: app.Result{Accepted: true},
		Settlement: []app.SlotSettlement{
			{Team: 0, PlayerID: "p1", Reward: 100},
			{Team: 1, PlayerID: "p2", Reward: 50, Err: errors.New("boom")},
		},
	}
	raw, err := json.Marshal(NewEndGameResponse(res))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"result":true,"settlement":[{"team":0,"playerID":"p1","reward":100,"ok":true},{"team":1,"playerID":"p2","reward":50,"ok":false}]}`
	if string(raw) != want {
		t.Fatalf("response = %s\nwant      %s", raw, want)
	}
}

func TestRejectedResultCarriesReason(t *testing.T) {
	raw, _ := json.Marshal(NewResultResponse(app.Result{Reason: domain.RejectSlotOccupied}))
	if string(raw) != `{"result":false,"reason":"slot_occupied"}` {
		t.Fatalf("response = %s", raw)
	}
}

func TestFaultKind(t *testing.T) {
	storage := fmt.Errorf("write: %w: %w", app.ErrStorageUnavailable, errors.New("io"))
	if got := FaultKind(storage); got != "storage_unavailable" {
		t.Fatalf("FaultKind(storage) = %q", got)
	}
	if got := FaultKind(fmt.Errorf("%w: bad", app.ErrInvalidRequest)); got != "invalid_request" {
		t.Fatalf("FaultKind(invalid) = %q", got)
	}
	if got := FaultKind(errors.New("x")); got != "internal" {
		t.Fatalf("FaultKind(other) = %q", got)
	}
}
