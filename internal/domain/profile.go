package domain

import "time"

// PlayerProfile is the cross-session record of a player.
type PlayerProfile struct {
	PlayerID    string            `json:"playerID"`
	Experience  int64             `json:"experience"`
	GamesPlayed int64             `json:"gamesPlayed"`
	LastLoginAt int64             `json:"lastLoginAt"` // unix milliseconds
	Decks       map[string]string `json:"decks"`       // deck slot -> deck serial

	Version string `json:"-"`
}

// NewPlayerProfile returns a profile with zeroed counters.
func NewPlayerProfile(playerID string, now time.Time) *PlayerProfile {
	return &PlayerProfile{
		PlayerID:    playerID,
		LastLoginAt: now.UnixMilli(),
		Decks:       map[string]string{},
	}
}

// LastLoginTime returns the last login stamp as a time.Time.
func (p *PlayerProfile) LastLoginTime() time.Time {
	return time.UnixMilli(p.LastLoginAt)
}

// SetDeck stores a deck serial in the given slot.
func (p *PlayerProfile) SetDeck(slot, serial string) {
	if p.Decks == nil {
		p.Decks = map[string]string{}
	}
	p.Decks[slot] = serial
}

// Reward records one finished game worth the given experience.
func (p *PlayerProfile) Reward(experience int64) {
	p.GamesPlayed++
	p.Experience += experience
}

// Clone returns a deep copy.
func (p *PlayerProfile) Clone() *PlayerProfile {
	if p == nil {
		return nil
	}
	out := *p
	out.Decks = make(map[string]string, len(p.Decks))
	for k, v := range p.Decks {
		out.Decks[k] = v
	}
	return &out
}
