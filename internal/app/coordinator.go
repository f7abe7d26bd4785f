package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tcgtable/internal/config"
	"tcgtable/internal/domain"
	"tcgtable/internal/ports"
)

var (
	// ErrStorageUnavailable wraps every failure to read or write a record.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrInvalidRequest marks malformed caller input (bad team index, missing ids, ...).
	ErrInvalidRequest = errors.New("invalid request")
)

// Clock returns the current time.
type Clock func() time.Time

// Dependencies are the ports the coordinator runs against.
type Dependencies struct {
	Tables   ports.TableStore
	Profiles ports.ProfileStore
	// Entitlements may be nil, in which case every deck is allowed.
	Entitlements ports.DeckEntitlementPort
	// Clock may be nil to use time.Now.
	Clock Clock
}

// Result is the outcome of a rule-gated operation. A rejected result is an
// expected answer, not a failure.
type Result struct {
	Accepted bool
	Reason   domain.Rejection
}

func resultOf(r domain.Rejection) Result {
	return Result{Accepted: r == domain.Accepted, Reason: r}
}

// EndGameResult carries the settlement outcome of every seated team.
type EndGameResult struct {
	Result
	Settlement []SlotSettlement
}

// Coordinator owns the table session lifecycle. One instance is built per
// process and shared by every transport; it holds no per-table state, so
// concurrent calls only meet at the store.
type Coordinator struct {
	tables       ports.TableStore
	profiles     ports.ProfileStore
	entitlements ports.DeckEntitlementPort
	now          Clock
	cfg          config.TableConfig
}

// NewCoordinator validates the configuration and wires the ports.
func NewCoordinator(deps Dependencies, cfg config.TableConfig) (*Coordinator, error) {
	if deps.Tables == nil || deps.Profiles == nil {
		return nil, fmt.Errorf("coordinator requires table and profile stores")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Entitlements == nil {
		deps.Entitlements = ports.AllowAllDecks{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Coordinator{
		tables:       deps.Tables,
		profiles:     deps.Profiles,
		entitlements: deps.Entitlements,
		now:          deps.Clock,
		cfg:          cfg,
	}, nil
}

// Config returns the active table configuration.
func (c *Coordinator) Config() config.TableConfig {
	return c.cfg
}

// GetProfile returns the player's profile, creating it on first access, and
// stamps the login time.
func (c *Coordinator) GetProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id is required", ErrInvalidRequest)
	}
	profile, err := c.loadProfile(ctx, playerID)
	if err != nil {
		return nil, err
	}

	profile.LastLoginAt = c.now().UnixMilli()
	profile.Version = ""
	if err := c.profiles.WriteProfile(ctx, profile); err != nil {
		return nil, storageErr("write profile "+playerID, err)
	}
	return profile, nil
}

// GetExperience returns only the player's experience.
func (c *Coordinator) GetExperience(ctx context.Context, playerID string) (int64, error) {
	if playerID == "" {
		return 0, fmt.Errorf("%w: player id is required", ErrInvalidRequest)
	}
	profile, err := c.loadProfile(ctx, playerID)
	if err != nil {
		return 0, err
	}
	return profile.Experience, nil
}

// SetDeck stores a deck serial in one of the player's deck slots.
func (c *Coordinator) SetDeck(ctx context.Context, playerID, deckID, deckSerial string) error {
	if playerID == "" || deckID == "" {
		return fmt.Errorf("%w: player id and deck id are required", ErrInvalidRequest)
	}
	profile, err := c.loadProfile(ctx, playerID)
	if err != nil {
		return err
	}

	profile.SetDeck(deckID, deckSerial)
	profile.Version = ""
	if err := c.profiles.WriteProfile(ctx, profile); err != nil {
		return storageErr("write profile "+playerID, err)
	}
	return nil
}

// GetTable returns the table session after applying expiry.
func (c *Coordinator) GetTable(ctx context.Context, key ports.TableKey) (*domain.TableSession, error) {
	return c.loadTable(ctx, key)
}

// SetTable overwrites the stored session wholesale. The key's table id always
// wins over the one in the payload, and an unknown state is stored as idle.
func (c *Coordinator) SetTable(ctx context.Context, key ports.TableKey, session *domain.TableSession) error {
	if session == nil {
		return fmt.Errorf("%w: table data is required", ErrInvalidRequest)
	}
	session.TableID = key.TableID
	if !session.State.Valid() {
		session.State = domain.StateIdle
	}
	session.LastInteraction = c.now().UnixMilli()
	session.Version = ""
	if err := c.tables.WriteTable(ctx, key, session); err != nil {
		return storageErr("write table "+key.String(), err)
	}
	return nil
}

// JoinTable seats a player in the given team slot.
func (c *Coordinator) JoinTable(ctx context.Context, key ports.TableKey, team int, playerID, playerName string) (Result, error) {
	if playerID == "" {
		return Result{}, fmt.Errorf("%w: player id is required", ErrInvalidRequest)
	}
	return c.mutate(ctx, key, func(s *domain.TableSession, now time.Time) (domain.Rejection, error) {
		return s.Join(team, playerID, playerName, now)
	})
}

// LeaveTable frees the given team slot.
func (c *Coordinator) LeaveTable(ctx context.Context, key ports.TableKey, team int) (Result, error) {
	return c.mutate(ctx, key, func(s *domain.TableSession, now time.Time) (domain.Rejection, error) {
		return s.Leave(team, now)
	})
}

// SetReadyState records a slot's ready flag and registered deck. Registering
// a deck consults the entitlement port first.
func (c *Coordinator) SetReadyState(ctx context.Context, key ports.TableKey, team int, ready bool, deckSerial string) (Result, error) {
	return c.mutate(ctx, key, func(s *domain.TableSession, now time.Time) (domain.Rejection, error) {
		slot, err := s.Team(team)
		if err != nil {
			return domain.Accepted, err
		}
		if ready && deckSerial != "" && slot.Occupied() && s.State == domain.StateIdle {
			allowed, err := c.entitlements.DeckAllowed(ctx, slot.PlayerID, deckSerial)
			if err != nil {
				return domain.Accepted, fmt.Errorf("entitlement check: %w", err)
			}
			if !allowed {
				return domain.RejectDeckNotAllowed, nil
			}
		}
		return s.SetReady(team, ready, deckSerial, now)
	})
}

// StartGame moves the table into session once both teams are seated and ready.
func (c *Coordinator) StartGame(ctx context.Context, key ports.TableKey) (Result, error) {
	return c.mutate(ctx, key, func(s *domain.TableSession, now time.Time) (domain.Rejection, error) {
		return s.Start(now), nil
	})
}

// NextTurn stores the caller's match snapshot on an in-session table.
func (c *Coordinator) NextTurn(ctx context.Context, key ports.TableKey, snapshot *domain.TableSession) (Result, error) {
	if snapshot == nil {
		return Result{}, fmt.Errorf("%w: table data is required", ErrInvalidRequest)
	}
	return c.mutate(ctx, key, func(s *domain.TableSession, now time.Time) (domain.Rejection, error) {
		return s.AdvanceTurn(snapshot, now), nil
	})
}

// EndGame settles a finished match and resets the table to idle.
//
// The preconditions are checked against the caller's snapshot, which also
// supplies each team's final health. With conditional writes the stored
// session must be in session as well, so a retried EndGame cannot pay twice.
// The reset is written first and rewards are granted only once it is
// accepted; per-slot reward failures are reported in the result.
func (c *Coordinator) EndGame(ctx context.Context, key ports.TableKey, snapshot *domain.TableSession) (EndGameResult, error) {
	if snapshot == nil {
		return EndGameResult{}, fmt.Errorf("%w: table data is required", ErrInvalidRequest)
	}
	stored, err := c.loadTable(ctx, key)
	if err != nil {
		return EndGameResult{}, err
	}

	if r := snapshot.CanEnd(); r != domain.Accepted {
		return EndGameResult{Result: resultOf(r)}, nil
	}
	if c.cfg.ConditionalWrites && stored.State != domain.StateInSession {
		return EndGameResult{Result: resultOf(domain.RejectNotInSession)}, nil
	}

	final := snapshot.Clone()
	final.TableID = key.TableID
	final.Version = stored.Version
	seated := final.Teams
	final.Finish(c.now())

	r, err := c.persistTable(ctx, key, final)
	if err != nil {
		return EndGameResult{}, err
	}
	if r != domain.Accepted {
		return EndGameResult{Result: resultOf(r)}, nil
	}
	return EndGameResult{Result: resultOf(r), Settlement: c.settle(ctx, seated)}, nil
}

// AuthorizeSeat checks that playerID currently holds the given team slot.
func (c *Coordinator) AuthorizeSeat(ctx context.Context, key ports.TableKey, team int, playerID string) (Result, error) {
	session, err := c.loadTable(ctx, key)
	if err != nil {
		return Result{}, err
	}
	slot, err := session.Team(team)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if playerID == "" || slot.PlayerID != playerID {
		return resultOf(domain.RejectNotSeated), nil
	}
	return resultOf(domain.Accepted), nil
}

type transition func(s *domain.TableSession, now time.Time) (domain.Rejection, error)

// mutate runs one load -> transition -> write cycle. Nothing is written when
// the transition is rejected.
func (c *Coordinator) mutate(ctx context.Context, key ports.TableKey, apply transition) (Result, error) {
	session, err := c.loadTable(ctx, key)
	if err != nil {
		return Result{}, err
	}

	r, err := apply(session, c.now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTeam) {
			return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return Result{}, err
	}
	if r != domain.Accepted {
		return resultOf(r), nil
	}

	r, err = c.persistTable(ctx, key, session)
	if err != nil {
		return Result{}, err
	}
	return resultOf(r), nil
}

func (c *Coordinator) persistTable(ctx context.Context, key ports.TableKey, session *domain.TableSession) (domain.Rejection, error) {
	if !c.cfg.ConditionalWrites {
		session.Version = ""
	}
	err := c.tables.WriteTable(ctx, key, session)
	if errors.Is(err, ports.ErrVersionConflict) {
		return domain.RejectWriteConflict, nil
	}
	if err != nil {
		return domain.Accepted, storageErr("write table "+key.String(), err)
	}
	return domain.Accepted, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
