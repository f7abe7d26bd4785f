package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"tcgtable/internal/domain"
	"tcgtable/internal/ports"
)

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// DisplayName is the generated name applied to the account.
	DisplayName string
	// ProfileUpdateErr is set when the account rename failed but onboarding continued.
	ProfileUpdateErr error
	// Profile is the player profile as stored after onboarding.
	Profile *domain.PlayerProfile
}

// Service handles post-auth onboarding for new players.
type Service struct {
	accounts ports.AccountPort
	profiles ports.ProfileStore
	rng      *rand.Rand
}

// NewService constructs an onboarding service with required ports.
// accounts/profiles must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, profiles ports.ProfileStore, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		profiles: profiles,
		rng:      rng,
	}
}

// OnboardNewUser gives a new account a friendly display name and makes sure
// its player profile exists, so the first get_profile call finds a record.
// Returns an error only if the profile cannot be created.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.profiles == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}
	if userID == "" {
		return Result{}, fmt.Errorf("userID is required")
	}

	result := Result{DisplayName: s.generateFriendlyName()}
	if err := s.accounts.UpdateProfile(ctx, userID, result.DisplayName, result.DisplayName); err != nil {
		// Renames are best-effort; the player profile is what the tables need.
		result.ProfileUpdateErr = err
	}

	profile, err := s.profiles.LoadProfile(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to create player profile: %w", err)
	}
	result.Profile = profile
	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Arcane", "Gilded", "Brave", "Clever", "Swift", "Calm", "Mighty", "Witty", "Sly", "Wild"}
	nouns := []string{"Drake", "Golem", "Wyvern", "Sphinx", "Wolf", "Griffin", "Falcon", "Titan", "Fox", "Hydra"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
