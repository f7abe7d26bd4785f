// Package wire holds the request and response shapes shared by the Nakama
// RPCs and the HTTP gateway. Field names follow the card table clients.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"tcgtable/internal/app"
	"tcgtable/internal/domain"
	"tcgtable/internal/ports"
)

// TableID accepts a table id sent either as a JSON number or as a numeric string.
type TableID int64

func (t *TableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("table id %q: %w", data, err)
	}
	*t = TableID(v)
	return nil
}

// TableData carries a client table snapshot. Clients send it either as a JSON
// object or as a string holding the encoded object.
type TableData struct {
	Session *domain.TableSession
}

func (d *TableData) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		d.Session = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	var session domain.TableSession
	if err := json.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("table data: %w", err)
	}
	d.Session = &session
	return nil
}

func (d TableData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Session)
}

// TableRequest is the body of every table operation.
type TableRequest struct {
	RealmID    string    `json:"realmID"`
	TableID    TableID   `json:"tableID"`
	TeamID     *int      `json:"teamID,omitempty"`
	PlayerID   string    `json:"playerID,omitempty"`
	PlayerName string    `json:"playerName,omitempty"`
	State      bool      `json:"state,omitempty"`
	DeckSerial string    `json:"deckSerial,omitempty"`
	TableData  TableData `json:"tableData"`
}

// Key returns the storage key addressed by the request.
func (r TableRequest) Key() (ports.TableKey, error) {
	if r.RealmID == "" {
		return ports.TableKey{}, fmt.Errorf("%w: realmID is required", app.ErrInvalidRequest)
	}
	return ports.TableKey{RealmID: r.RealmID, TableID: int64(r.TableID)}, nil
}

// Team returns the addressed team slot index.
func (r TableRequest) Team() (int, error) {
	if r.TeamID == nil {
		return 0, fmt.Errorf("%w: teamID is required", app.ErrInvalidRequest)
	}
	return *r.TeamID, nil
}

// Snapshot returns the table data carried by the request.
func (r TableRequest) Snapshot() (*domain.TableSession, error) {
	if r.TableData.Session == nil {
		return nil, fmt.Errorf("%w: tableData is required", app.ErrInvalidRequest)
	}
	return r.TableData.Session, nil
}

// DecodeTableRequest parses a table operation body.
func DecodeTableRequest(payload []byte) (TableRequest, error) {
	var req TableRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return TableRequest{}, fmt.Errorf("%w: %w", app.ErrInvalidRequest, err)
	}
	return req, nil
}

// ProfileRequest is the body of the profile operations.
type ProfileRequest struct {
	PlayerID   string `json:"playerID"`
	DeckID     string `json:"deckID,omitempty"`
	DeckSerial string `json:"deckSerial,omitempty"`
}

// DecodeProfileRequest parses a profile operation body.
func DecodeProfileRequest(payload []byte) (ProfileRequest, error) {
	var req ProfileRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return ProfileRequest{}, fmt.Errorf("%w: %w", app.ErrInvalidRequest, err)
	}
	return req, nil
}

// ResultResponse answers every rule-gated operation.
type ResultResponse struct {
	Result bool   `json:"result"`
	Reason string `json:"reason,omitempty"`
}

// NewResultResponse encodes a coordinator result.
func NewResultResponse(r app.Result) ResultResponse {
	return ResultResponse{Result: r.Accepted, Reason: string(r.Reason)}
}

// Failure is the body of every fault response.
var Failure = ResultResponse{Result: false}

// SettlementEntry reports the reward of one team slot.
type SettlementEntry struct {
	Team     int    `json:"team"`
	PlayerID string `json:"playerID"`
	Reward   int64  `json:"reward"`
	OK       bool   `json:"ok"`
}

// EndGameResponse answers end_game.
type EndGameResponse struct {
	ResultResponse
	Settlement []SettlementEntry `json:"settlement,omitempty"`
}

// NewEndGameResponse encodes an end-game result.
func NewEndGameResponse(r app.EndGameResult) EndGameResponse {
	out := EndGameResponse{ResultResponse: NewResultResponse(r.Result)}
	for _, s := range r.Settlement {
		out.Settlement = append(out.Settlement, SettlementEntry{
			Team:     s.Team,
			PlayerID: s.PlayerID,
			Reward:   s.Reward,
			OK:       s.OK(),
		})
	}
	return out
}

// ExperienceResponse answers get_experience.
type ExperienceResponse struct {
	Experience int64 `json:"experience"`
}

// VoiceTokenResponse answers table_voice_token.
type VoiceTokenResponse struct {
	Token   string `json:"token"`
	Channel string `json:"channel"`
}

// FaultKind classifies an error for logging. Every kind gets the same
// fault response.
func FaultKind(err error) string {
	switch {
	case errors.Is(err, app.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, app.ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}
