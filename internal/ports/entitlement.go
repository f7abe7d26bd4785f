package ports

import "context"

// DeckEntitlementPort answers whether a player may register a deck, e.g. by
// checking card ownership against an external registry.
type DeckEntitlementPort interface {
	// DeckAllowed reports whether playerID may use the serialized deck.
	DeckAllowed(ctx context.Context, playerID, deckSerial string) (bool, error)
}

// AllowAllDecks is the entitlement policy used when no registry is wired.
type AllowAllDecks struct{}

func (AllowAllDecks) DeckAllowed(context.Context, string, string) (bool, error) {
	return true, nil
}

var _ DeckEntitlementPort = AllowAllDecks{}
