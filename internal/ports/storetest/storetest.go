// Package storetest checks that a store implementation honours the
// ports.TableStore and ports.ProfileStore contracts.
package storetest

import (
	"context"
	"errors"
	"testing"

	"tcgtable/internal/domain"
	"tcgtable/internal/ports"
)

// Stores is a fresh, empty pair of stores.
type Stores struct {
	Tables   ports.TableStore
	Profiles ports.ProfileStore
}

// Run executes the contract suite. newStores must return empty stores on every call.
func Run(t *testing.T, newStores func(t *testing.T) Stores) {
	t.Run("LoadTableCreatesDefault", func(t *testing.T) { testLoadTableCreatesDefault(t, newStores(t)) })
	t.Run("WriteTableRoundTrip", func(t *testing.T) { testWriteTableRoundTrip(t, newStores(t)) })
	t.Run("ConditionalTableWrite", func(t *testing.T) { testConditionalTableWrite(t, newStores(t)) })
	t.Run("RealmsAreSeparate", func(t *testing.T) { testRealmsAreSeparate(t, newStores(t)) })
	t.Run("ProfileRoundTrip", func(t *testing.T) { testProfileRoundTrip(t, newStores(t)) })
	t.Run("ConditionalProfileWrite", func(t *testing.T) { testConditionalProfileWrite(t, newStores(t)) })
}

func testLoadTableCreatesDefault(t *testing.T, s Stores) {
	ctx := context.Background()
	key := ports.TableKey{RealmID: "realm", TableID: 9}

	first, err := s.Tables.LoadTable(ctx, key)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if first.TableID != 9 || first.State != domain.StateIdle || first.OccupiedSeatCount() != 0 {
		t.Fatalf("default session = %+v", first)
	}
	if first.Version == "" {
		t.Fatal("default session has no version")
	}

	second, err := s.Tables.LoadTable(ctx, key)
	if err != nil {
		t.Fatalf("LoadTable again: %v", err)
	}
	if second.Version != first.Version {
		t.Fatalf("version changed between loads: %q -> %q", first.Version, second.Version)
	}
}

func testWriteTableRoundTrip(t *testing.T, s Stores) {
	ctx := context.Background()
	key := ports.TableKey{RealmID: "realm", TableID: 1}

	session, err := s.Tables.LoadTable(ctx, key)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	match, err := domain.NewMatchState(map[string]any{"turn": 3, "board": []any{"a", "b"}})
	if err != nil {
		t.Fatalf("NewMatchState: %v", err)
	}
	session.State = domain.StateInSession
	session.Teams[0] = domain.TeamSlot{PlayerID: "p1", PlayerName: "Alice", ReadyState: true, DeckRegistered: "d1", HealthCur: 20}
	session.Teams[1] = domain.TeamSlot{PlayerID: "p2", PlayerName: "Bob", ReadyState: true, DeckRegistered: "d2", HealthCur: 18}
	session.LastInteraction = 123456
	session.MatchState = match
	before := session.Version

	session.Version = ""
	if err := s.Tables.WriteTable(ctx, key, session); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if session.Version == "" || session.Version == before {
		t.Fatalf("write did not report a new version: %q", session.Version)
	}

	got, err := s.Tables.LoadTable(ctx, key)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if got.Version != session.Version {
		t.Fatalf("loaded version %q, want %q", got.Version, session.Version)
	}
	if got.State != domain.StateInSession || got.Teams != session.Teams || got.LastInteraction != 123456 {
		t.Fatalf("round trip = %+v, want %+v", got, session)
	}
	if !got.MatchState.Equal(match) {
		t.Fatalf("match state = %v", got.MatchState.Fields())
	}
}

func testConditionalTableWrite(t *testing.T, s Stores) {
	ctx := context.Background()
	key := ports.TableKey{RealmID: "realm", TableID: 2}

	a, _ := s.Tables.LoadTable(ctx, key)
	b, _ := s.Tables.LoadTable(ctx, key)

	a.Teams[0].PlayerID = "p1"
	if err := s.Tables.WriteTable(ctx, key, a); err != nil {
		t.Fatalf("first conditional write: %v", err)
	}
	b.Teams[0].PlayerID = "p2"
	if err := s.Tables.WriteTable(ctx, key, b); !errors.Is(err, ports.ErrVersionConflict) {
		t.Fatalf("stale write err = %v, want ErrVersionConflict", err)
	}

	got, _ := s.Tables.LoadTable(ctx, key)
	if got.Teams[0].PlayerID != "p1" {
		t.Fatalf("slot 0 = %q, want p1", got.Teams[0].PlayerID)
	}

	b.Version = ""
	if err := s.Tables.WriteTable(ctx, key, b); err != nil {
		t.Fatalf("unconditional write: %v", err)
	}
	got, _ = s.Tables.LoadTable(ctx, key)
	if got.Teams[0].PlayerID != "p2" {
		t.Fatalf("slot 0 = %q, want last writer p2", got.Teams[0].PlayerID)
	}
}

func testRealmsAreSeparate(t *testing.T, s Stores) {
	ctx := context.Background()
	a := ports.TableKey{RealmID: "a", TableID: 1}
	b := ports.TableKey{RealmID: "b", TableID: 1}

	session, _ := s.Tables.LoadTable(ctx, a)
	session.Teams[1].PlayerID = "p1"
	session.Version = ""
	if err := s.Tables.WriteTable(ctx, a, session); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	other, err := s.Tables.LoadTable(ctx, b)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if other.Teams[1].Occupied() {
		t.Fatal("realm b sees realm a's player")
	}
}

func testProfileRoundTrip(t *testing.T, s Stores) {
	ctx := context.Background()

	profile, err := s.Profiles.LoadProfile(ctx, "p1")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile.PlayerID != "p1" || profile.Experience != 0 || profile.GamesPlayed != 0 {
		t.Fatalf("default profile = %+v", profile)
	}

	profile.Reward(100)
	profile.SetDeck("2", "serial-2")
	profile.Version = ""
	if err := s.Profiles.WriteProfile(ctx, profile); err != nil {
		t.Fatalf("WriteProfile: %v", err)
	}

	got, err := s.Profiles.LoadProfile(ctx, "p1")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if got.Experience != 100 || got.GamesPlayed != 1 || got.Decks["2"] != "serial-2" {
		t.Fatalf("profile = %+v", got)
	}
	if got.Version != profile.Version {
		t.Fatalf("loaded version %q, want %q", got.Version, profile.Version)
	}
}

func testConditionalProfileWrite(t *testing.T, s Stores) {
	ctx := context.Background()

	a, _ := s.Profiles.LoadProfile(ctx, "p1")
	b, _ := s.Profiles.LoadProfile(ctx, "p1")

	a.Reward(100)
	if err := s.Profiles.WriteProfile(ctx, a); err != nil {
		t.Fatalf("first conditional write: %v", err)
	}
	b.Reward(50)
	if err := s.Profiles.WriteProfile(ctx, b); !errors.Is(err, ports.ErrVersionConflict) {
		t.Fatalf("stale write err = %v, want ErrVersionConflict", err)
	}

	got, _ := s.Profiles.LoadProfile(ctx, "p1")
	if got.Experience != 100 {
		t.Fatalf("experience = %d, want 100", got.Experience)
	}
}
