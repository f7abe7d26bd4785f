package ports

import "context"

// AccountPort renames platform accounts during onboarding.
type AccountPort interface {
	// UpdateProfile sets the username and display name of userID.
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
}
