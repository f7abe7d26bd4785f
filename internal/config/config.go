package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultSessionTimeoutSeconds = 5 * 60
	defaultWinExperience         = 100
	defaultLossExperience        = 50
)

// TableConfig holds the coordinator's tunables.
type TableConfig struct {
	// SessionTimeoutSeconds is how long a table may go untouched before the next load resets it.
	SessionTimeoutSeconds int `json:"session_timeout_seconds"`
	// ProfileRetentionHours resets profiles whose last login is older than this. Zero keeps profiles forever.
	ProfileRetentionHours int   `json:"profile_retention_hours"`
	WinExperience         int64 `json:"win_experience"`
	LossExperience        int64 `json:"loss_experience"`
	// ConditionalWrites turns read-modify-write races into write_conflict rejections.
	ConditionalWrites bool `json:"conditional_writes"`
}

// Default returns the reference configuration.
func Default() TableConfig {
	return TableConfig{
		SessionTimeoutSeconds: defaultSessionTimeoutSeconds,
		WinExperience:         defaultWinExperience,
		LossExperience:        defaultLossExperience,
	}
}

// LoadTableConfig reads a JSON config file. Keys missing from the file keep
// their default values.
func LoadTableConfig(path string) (TableConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read table config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to unmarshal table config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from Nakama runtime environment variables.
// Unparseable values are ignored.
func (c *TableConfig) ApplyEnv(env map[string]string) {
	if val, ok := env["tcg_session_timeout_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			c.SessionTimeoutSeconds = i
		}
	}
	if val, ok := env["tcg_profile_retention_hours"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			c.ProfileRetentionHours = i
		}
	}
	if val, ok := env["tcg_conditional_writes"]; ok {
		c.ConditionalWrites = val == "true"
	}
}

// Validate checks the reward and timeout invariants.
func (c TableConfig) Validate() error {
	if c.SessionTimeoutSeconds <= 0 {
		return errors.New("table config: session_timeout_seconds must be > 0")
	}
	if c.ProfileRetentionHours < 0 {
		return errors.New("table config: profile_retention_hours must be >= 0")
	}
	if c.LossExperience < 0 {
		return errors.New("table config: loss_experience must be >= 0")
	}
	if c.WinExperience <= c.LossExperience {
		return errors.New("table config: win_experience must exceed loss_experience")
	}
	return nil
}

// SessionTimeout returns the table expiry window.
func (c TableConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

// ProfileRetention returns the profile expiry window, zero meaning never.
func (c TableConfig) ProfileRetention() time.Duration {
	return time.Duration(c.ProfileRetentionHours) * time.Hour
}
