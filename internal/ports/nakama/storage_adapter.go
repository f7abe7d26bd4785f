package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tcgtable/internal/domain"
	"tcgtable/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	tableCollection   = "card_tables"
	profileCollection = "player_profiles"

	// createOnly makes a storage write fail if the object already exists.
	createOnly = "*"
)

// storageModule is the subset of runtime.NakamaModule the adapter needs.
type storageModule interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
}

// NakamaStorageAdapter implements ports.TableStore and ports.ProfileStore on
// Nakama storage. Every object is owned by the system user so only the
// server-side RPCs can touch it.
type NakamaStorageAdapter struct {
	nk  storageModule
	now func() time.Time
}

// NewNakamaStorageAdapter creates a new storage adapter.
func NewNakamaStorageAdapter(nk storageModule) *NakamaStorageAdapter {
	return &NakamaStorageAdapter{nk: nk, now: time.Now}
}

// LoadTable reads a table session, creating the default idle session on a miss.
func (a *NakamaStorageAdapter) LoadTable(ctx context.Context, key ports.TableKey) (*domain.TableSession, error) {
	var session domain.TableSession
	version, err := a.loadOrCreate(ctx, tableCollection, key.StorageID(), &session, func() any {
		return domain.NewTableSession(key.TableID, a.now())
	})
	if err != nil {
		return nil, err
	}
	session.Version = version
	return &session, nil
}

// WriteTable stores a table session. An empty Version overwrites unconditionally.
func (a *NakamaStorageAdapter) WriteTable(ctx context.Context, key ports.TableKey, session *domain.TableSession) error {
	version, err := a.write(ctx, tableCollection, key.StorageID(), session, session.Version)
	if err != nil {
		return err
	}
	session.Version = version
	return nil
}

// LoadProfile reads a player profile, creating a zeroed profile on a miss.
func (a *NakamaStorageAdapter) LoadProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error) {
	var profile domain.PlayerProfile
	version, err := a.loadOrCreate(ctx, profileCollection, playerID, &profile, func() any {
		return domain.NewPlayerProfile(playerID, a.now())
	})
	if err != nil {
		return nil, err
	}
	profile.Version = version
	return &profile, nil
}

// WriteProfile stores a player profile. An empty Version overwrites unconditionally.
func (a *NakamaStorageAdapter) WriteProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	version, err := a.write(ctx, profileCollection, profile.PlayerID, profile, profile.Version)
	if err != nil {
		return err
	}
	profile.Version = version
	return nil
}

// loadOrCreate decodes the stored object into dst. On a miss it writes the
// default create-only; if another caller created it first, it reads theirs.
func (a *NakamaStorageAdapter) loadOrCreate(ctx context.Context, collection, key string, dst any, def func() any) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		obj, err := a.read(ctx, collection, key)
		if err != nil {
			return "", err
		}
		if obj != nil {
			if err := json.Unmarshal([]byte(obj.Value), dst); err != nil {
				return "", fmt.Errorf("decode %s/%s: %w", collection, key, err)
			}
			return obj.Version, nil
		}

		fresh := def()
		version, err := a.write(ctx, collection, key, fresh, createOnly)
		if errors.Is(err, ports.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return "", err
		}
		raw, err := json.Marshal(fresh)
		if err != nil {
			return "", err
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return "", err
		}
		return version, nil
	}
	return "", fmt.Errorf("load %s/%s: object vanished after create conflict", collection, key)
}

func (a *NakamaStorageAdapter) read(ctx context.Context, collection, key string) (*api.StorageObject, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: collection, Key: key},
	})
	if err != nil {
		return nil, fmt.Errorf("storage read %s/%s: %w", collection, key, err)
	}
	if len(objects) == 0 {
		return nil, nil
	}
	return objects[0], nil
}

func (a *NakamaStorageAdapter) write(ctx context.Context, collection, key string, value any, version string) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}

	acks, err := a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      collection,
			Key:             key,
			Value:           string(raw),
			Version:         version,
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return "", fmt.Errorf("storage write %s/%s: %w", collection, key, ports.ErrVersionConflict)
		}
		return "", fmt.Errorf("storage write %s/%s: %w", collection, key, err)
	}
	if len(acks) == 0 {
		return "", nil
	}
	return acks[0].Version, nil
}

var (
	_ ports.TableStore   = (*NakamaStorageAdapter)(nil)
	_ ports.ProfileStore = (*NakamaStorageAdapter)(nil)
)
