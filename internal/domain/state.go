package domain

import (
	"errors"
	"time"
)

// TableState represents the lifecycle stage of a card table.
type TableState int

const (
	// StateIdle is the pre-game state where players can join, leave and ready up.
	StateIdle TableState = 0
	// StateInSession is the active game state where turns are exchanged.
	StateInSession TableState = 1
)

func (s TableState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInSession:
		return "in_session"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known lifecycle stages.
func (s TableState) Valid() bool {
	return s == StateIdle || s == StateInSession
}

// ErrInvalidTeam is returned when a team index does not address one of the two slots.
var ErrInvalidTeam = errors.New("team index out of range")

// TeamSlot is one side of the match.
type TeamSlot struct {
	PlayerID       string `json:"playerID"` // empty string means the slot is free
	PlayerName     string `json:"playerName"`
	ReadyState     bool   `json:"readyState"`
	DeckRegistered string `json:"deckRegistered"`
	HealthCur      int    `json:"healthCur"` // last known team health, picks the reward tier
}

// Occupied reports whether a player holds the slot.
func (t *TeamSlot) Occupied() bool {
	return t.PlayerID != ""
}

// clear frees the slot. Health is kept so the last board stays displayable.
func (t *TeamSlot) clear() {
	t.PlayerID = ""
	t.PlayerName = ""
	t.ReadyState = false
	t.DeckRegistered = ""
}

// TableSession is the authoritative record of one match table.
type TableSession struct {
	TableID         int64               `json:"id"`
	State           TableState          `json:"state"`
	Teams           [TeamCount]TeamSlot `json:"teams"`
	LastInteraction int64               `json:"lastInteraction"` // unix milliseconds
	MatchState      *MatchState         `json:"matchState,omitempty"`

	// Version is the storage version observed when the record was loaded.
	Version string `json:"-"`
}

// NewTableSession returns a table in its default shape: idle with both slots empty.
func NewTableSession(tableID int64, now time.Time) *TableSession {
	return &TableSession{
		TableID:         tableID,
		State:           StateIdle,
		LastInteraction: now.UnixMilli(),
	}
}

// Team returns the addressed slot or ErrInvalidTeam.
func (s *TableSession) Team(team int) (*TeamSlot, error) {
	if team < 0 || team >= TeamCount {
		return nil, ErrInvalidTeam
	}
	return &s.Teams[team], nil
}

// LastInteractionTime returns the last accepted mutation as a time.Time.
func (s *TableSession) LastInteractionTime() time.Time {
	return time.UnixMilli(s.LastInteraction)
}

// AllTeamsReady reports whether every slot is occupied and ready.
func (s *TableSession) AllTeamsReady() bool {
	for i := range s.Teams {
		if !s.Teams[i].Occupied() || !s.Teams[i].ReadyState {
			return false
		}
	}
	return true
}

// OccupiedSeatCount returns how many slots currently hold a player.
func (s *TableSession) OccupiedSeatCount() int {
	count := 0
	for i := range s.Teams {
		if s.Teams[i].Occupied() {
			count++
		}
	}
	return count
}

// SeatOf returns the slot index held by playerID, or -1.
func (s *TableSession) SeatOf(playerID string) int {
	if playerID == "" {
		return -1
	}
	for i := range s.Teams {
		if s.Teams[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the session.
func (s *TableSession) Clone() *TableSession {
	if s == nil {
		return nil
	}
	out := *s
	out.MatchState = s.MatchState.Clone()
	return &out
}

func (s *TableSession) touch(now time.Time) {
	s.LastInteraction = now.UnixMilli()
}
