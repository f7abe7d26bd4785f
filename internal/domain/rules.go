package domain

import "time"

// Rejection names the precondition a transition failed. The zero value means
// the transition was accepted. Rejections are an expected outcome and are
// reported to callers as a negative result, never as an error.
type Rejection string

const (
	Accepted             Rejection = ""
	RejectNotIdle        Rejection = "table_not_idle"
	RejectNotInSession   Rejection = "table_not_in_session"
	RejectSlotOccupied   Rejection = "slot_occupied"
	RejectSlotEmpty      Rejection = "slot_empty"
	RejectTeamsNotReady  Rejection = "teams_not_ready"
	RejectDeckNotAllowed Rejection = "deck_not_allowed"
	RejectNotSeated      Rejection = "player_not_seated"
	RejectWriteConflict  Rejection = "write_conflict"
)

// Join seats a player in an empty slot of an idle table.
func (s *TableSession) Join(team int, playerID, playerName string, now time.Time) (Rejection, error) {
	slot, err := s.Team(team)
	if err != nil {
		return Accepted, err
	}
	if s.State != StateIdle {
		return RejectNotIdle, nil
	}
	if slot.Occupied() {
		return RejectSlotOccupied, nil
	}

	slot.PlayerID = playerID
	slot.PlayerName = playerName
	s.touch(now)
	return Accepted, nil
}

// Leave frees an occupied slot of an idle table.
func (s *TableSession) Leave(team int, now time.Time) (Rejection, error) {
	slot, err := s.Team(team)
	if err != nil {
		return Accepted, err
	}
	if s.State != StateIdle {
		return RejectNotIdle, nil
	}
	if !slot.Occupied() {
		return RejectSlotEmpty, nil
	}

	slot.clear()
	s.touch(now)
	return Accepted, nil
}

// SetReady records the ready flag and registered deck of an occupied slot.
func (s *TableSession) SetReady(team int, ready bool, deck string, now time.Time) (Rejection, error) {
	slot, err := s.Team(team)
	if err != nil {
		return Accepted, err
	}
	if s.State != StateIdle {
		return RejectNotIdle, nil
	}
	if !slot.Occupied() {
		return RejectSlotEmpty, nil
	}

	slot.ReadyState = ready
	slot.DeckRegistered = deck
	s.touch(now)
	return Accepted, nil
}

// Start moves an idle table with both teams seated and ready into session.
func (s *TableSession) Start(now time.Time) Rejection {
	if s.State != StateIdle {
		return RejectNotIdle
	}
	if !s.AllTeamsReady() {
		return RejectTeamsNotReady
	}

	s.State = StateInSession
	s.touch(now)
	return Accepted
}

// AdvanceTurn replaces the match payload with the caller's snapshot and takes
// over each team's reported health. Occupancy and readiness are not taken from
// the snapshot.
func (s *TableSession) AdvanceTurn(snapshot *TableSession, now time.Time) Rejection {
	if s.State != StateInSession {
		return RejectNotInSession
	}
	if !s.AllTeamsReady() {
		return RejectTeamsNotReady
	}

	s.MatchState = snapshot.MatchState.Clone()
	for i := range s.Teams {
		s.Teams[i].HealthCur = snapshot.Teams[i].HealthCur
	}
	s.touch(now)
	return Accepted
}

// CanEnd checks a caller-supplied end-of-match snapshot.
func (s *TableSession) CanEnd() Rejection {
	if s.State != StateInSession {
		return RejectNotInSession
	}
	if !s.AllTeamsReady() {
		return RejectTeamsNotReady
	}
	return Accepted
}

// Finish returns a settled table to idle and frees both seats. Decks, health
// and the match payload stay as last known so the finished board can still
// be shown.
func (s *TableSession) Finish(now time.Time) {
	s.State = StateIdle
	for i := range s.Teams {
		s.Teams[i].PlayerID = ""
		s.Teams[i].ReadyState = false
	}
	s.touch(now)
}
