package app

import (
	"context"
	"time"

	"tcgtable/internal/domain"
	"tcgtable/internal/ports"
)

// expired reports whether last is older than the window. A zero window never expires.
func expired(last, now time.Time, window time.Duration) bool {
	return window > 0 && now.Sub(last) > window
}

// loadTable loads a session and resets it in place when it has been idle
// longer than the session timeout. The reset is written immediately, so an
// abandoned match is discarded by whoever touches the table next.
func (c *Coordinator) loadTable(ctx context.Context, key ports.TableKey) (*domain.TableSession, error) {
	session, err := c.tables.LoadTable(ctx, key)
	if err != nil {
		return nil, storageErr("load table "+key.String(), err)
	}
	session.TableID = key.TableID

	now := c.now()
	if !expired(session.LastInteractionTime(), now, c.cfg.SessionTimeout()) {
		return session, nil
	}

	fresh := domain.NewTableSession(key.TableID, now)
	if err := c.tables.WriteTable(ctx, key, fresh); err != nil {
		return nil, storageErr("reset table "+key.String(), err)
	}
	return fresh, nil
}

// loadProfile loads a profile and applies the profile retention window,
// which is independent of the table timeout and disabled by default.
func (c *Coordinator) loadProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error) {
	profile, err := c.profiles.LoadProfile(ctx, playerID)
	if err != nil {
		return nil, storageErr("load profile "+playerID, err)
	}

	now := c.now()
	if !expired(profile.LastLoginTime(), now, c.cfg.ProfileRetention()) {
		return profile, nil
	}

	fresh := domain.NewPlayerProfile(playerID, now)
	if err := c.profiles.WriteProfile(ctx, fresh); err != nil {
		return nil, storageErr("reset profile "+playerID, err)
	}
	return fresh, nil
}
