package memory

import (
	"context"
	"testing"

	"tcgtable/internal/ports"
	"tcgtable/internal/ports/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Stores {
		s := NewStore()
		return storetest.Stores{Tables: s, Profiles: s}
	})
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	key := ports.TableKey{RealmID: "r", TableID: 1}

	session, _ := s.LoadTable(ctx, key)
	session.Teams[0].PlayerID = "p1"

	again, _ := s.LoadTable(ctx, key)
	if again.Teams[0].Occupied() {
		t.Fatal("mutating a loaded session changed the stored one")
	}
}

func TestStoreHonoursCancellation(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.LoadTable(ctx, ports.TableKey{RealmID: "r", TableID: 1}); err == nil {
		t.Fatal("expected context error")
	}
	if _, err := s.LoadProfile(ctx, "p1"); err == nil {
		t.Fatal("expected context error")
	}
}
