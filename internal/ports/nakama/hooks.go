package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"tcgtable/internal/app/onboarding"
	"tcgtable/internal/ports"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

type onboardingHook struct {
	profiles ports.ProfileStore
}

func newOnboardingHook(profiles ports.ProfileStore) *onboardingHook {
	return &onboardingHook{profiles: profiles}
}

// AfterAuthenticateDevice is triggered after an account is authenticated.
// It names new accounts and creates their player profile.
func (h *onboardingHook) AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	if out == nil || !out.Created {
		return nil
	}

	userID := callerID(ctx)
	if userID == "" {
		// The context has no user yet for a fresh device sign-up.
		resolvedID, err := extractUserIDFromToken(out.Token)
		if err != nil {
			logger.Error("AfterAuthenticateDevice: Failed to extract user ID from token: %v", err)
			return err
		}
		userID = resolvedID
	}

	logger.Info("Onboarding new player %s", userID)

	service := onboarding.NewService(NewNakamaAccountAdapter(nk), h.profiles, nil)
	result, err := service.OnboardNewUser(ctx, userID)
	if result.ProfileUpdateErr != nil {
		logger.Warn("AfterAuthenticateDevice: Failed to update account for player %s: %v", userID, result.ProfileUpdateErr)
	}
	if err != nil {
		logger.Error("AfterAuthenticateDevice: Onboarding failed for player %s: %v", userID, err)
		return err
	}
	return nil
}

// extractUserIDFromToken reads the uid claim of a Nakama session token. The
// token was just issued by Nakama itself, so the signature is not checked.
func extractUserIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}

	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("token claims missing uid")
	}
	return uid, nil
}
