package ports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tcgtable/internal/domain"
)

// ErrVersionConflict is returned by a conditional write when the stored
// record changed after it was loaded.
var ErrVersionConflict = errors.New("stored version does not match")

// TableKey identifies a table session. The same table id in two realms is two
// different sessions.
type TableKey struct {
	RealmID string
	TableID int64
}

// StorageID returns the storage key, "realmID&tableID".
func (k TableKey) StorageID() string {
	return k.RealmID + "&" + strconv.FormatInt(k.TableID, 10)
}

func (k TableKey) String() string {
	return k.StorageID()
}

// ParseTableKey is the inverse of StorageID.
func ParseTableKey(id string) (TableKey, error) {
	idx := strings.LastIndex(id, "&")
	if idx < 0 {
		return TableKey{}, fmt.Errorf("table key %q: missing separator", id)
	}
	tableID, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil {
		return TableKey{}, fmt.Errorf("table key %q: %w", id, err)
	}
	return TableKey{RealmID: id[:idx], TableID: tableID}, nil
}

// TableStore persists table sessions.
//
// Writes with an empty Version are unconditional and the last writer wins.
// A non-empty Version must equal the stored one, otherwise the write fails
// with ErrVersionConflict. Implementations never retry.
type TableStore interface {
	// LoadTable returns the stored session, creating and persisting the
	// default idle session on a miss. The returned Version reflects storage.
	LoadTable(ctx context.Context, key TableKey) (*domain.TableSession, error)

	// WriteTable replaces the stored session and sets session.Version to
	// the new stored version.
	WriteTable(ctx context.Context, key TableKey, session *domain.TableSession) error
}

// ProfileStore persists player profiles. It follows the same write rules as TableStore.
type ProfileStore interface {
	// LoadProfile returns the stored profile, creating and persisting a
	// zeroed profile on a miss.
	LoadProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error)

	// WriteProfile replaces the stored profile and sets profile.Version.
	WriteProfile(ctx context.Context, profile *domain.PlayerProfile) error
}
