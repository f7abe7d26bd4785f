package app

import (
	"context"
	"errors"
	"fmt"

	"tcgtable/internal/domain"
	"tcgtable/internal/ports"
)

// SlotSettlement is the reward outcome for one team slot.
type SlotSettlement struct {
	Team     int
	PlayerID string
	Reward   int64
	Err      error
}

// OK reports whether the reward was persisted.
func (s SlotSettlement) OK() bool {
	return s.Err == nil
}

// rewardFor picks the experience tier from the team's final health.
func (c *Coordinator) rewardFor(team domain.TeamSlot) int64 {
	if team.HealthCur > 0 {
		return c.cfg.WinExperience
	}
	return c.cfg.LossExperience
}

// settle rewards every seated team in slot order. Slots are independent: a
// failure on one slot neither stops the next nor undoes an earlier one.
func (c *Coordinator) settle(ctx context.Context, teams [domain.TeamCount]domain.TeamSlot) []SlotSettlement {
	out := make([]SlotSettlement, 0, domain.TeamCount)
	for i, team := range teams {
		if !team.Occupied() {
			continue
		}
		outcome := SlotSettlement{
			Team:     i,
			PlayerID: team.PlayerID,
			Reward:   c.rewardFor(team),
		}
		outcome.Err = c.rewardPlayer(ctx, team.PlayerID, outcome.Reward)
		out = append(out, outcome)
	}
	return out
}

func (c *Coordinator) rewardPlayer(ctx context.Context, playerID string, reward int64) error {
	profile, err := c.loadProfile(ctx, playerID)
	if err != nil {
		return err
	}

	profile.Reward(reward)
	if !c.cfg.ConditionalWrites {
		profile.Version = ""
	}
	err = c.profiles.WriteProfile(ctx, profile)
	if errors.Is(err, ports.ErrVersionConflict) {
		return fmt.Errorf("settle %s: %w", playerID, err)
	}
	if err != nil {
		return storageErr("settle "+playerID, err)
	}
	return nil
}
