// Package redisstore keeps tables and profiles in Redis hashes. Each record
// is a hash with the JSON document under "data" and an integer "version"
// bumped on every write.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tcgtable/internal/domain"
	"tcgtable/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	fieldData    = "data"
	fieldVersion = "version"
)

var errExists = errors.New("record exists")

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Store implements ports.TableStore and ports.ProfileStore.
type Store struct {
	client        *redis.Client
	tablePrefix   string
	profilePrefix string
	now           func() time.Time
}

// NewStore creates a Redis-backed store.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client:        client,
		tablePrefix:   "table:",
		profilePrefix: "profile:",
		now:           time.Now,
	}
}

func (s *Store) tableKey(key ports.TableKey) string {
	return s.tablePrefix + key.StorageID()
}

func (s *Store) profileKey(playerID string) string {
	return s.profilePrefix + playerID
}

func (s *Store) LoadTable(ctx context.Context, key ports.TableKey) (*domain.TableSession, error) {
	var session domain.TableSession
	version, err := s.load(ctx, s.tableKey(key), &session, func() any {
		return domain.NewTableSession(key.TableID, s.now())
	})
	if err != nil {
		return nil, err
	}
	session.Version = version
	return &session, nil
}

func (s *Store) WriteTable(ctx context.Context, key ports.TableKey, session *domain.TableSession) error {
	version, err := s.write(ctx, s.tableKey(key), session, session.Version)
	if err != nil {
		return err
	}
	session.Version = version
	return nil
}

func (s *Store) LoadProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error) {
	var profile domain.PlayerProfile
	version, err := s.load(ctx, s.profileKey(playerID), &profile, func() any {
		return domain.NewPlayerProfile(playerID, s.now())
	})
	if err != nil {
		return nil, err
	}
	profile.Version = version
	return &profile, nil
}

func (s *Store) WriteProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	version, err := s.write(ctx, s.profileKey(profile.PlayerID), profile, profile.Version)
	if err != nil {
		return err
	}
	profile.Version = version
	return nil
}

// load decodes the record at key into dst, creating the default on a miss.
// Concurrent creators race through WATCH; the loser reads the winner's record.
func (s *Store) load(ctx context.Context, key string, dst any, def func() any) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return "", fmt.Errorf("redis: load %s: %w", key, err)
		}
		if len(fields) > 0 {
			if err := json.Unmarshal([]byte(fields[fieldData]), dst); err != nil {
				return "", fmt.Errorf("redis: decode %s: %w", key, err)
			}
			return fields[fieldVersion], nil
		}

		raw, err := json.Marshal(def())
		if err != nil {
			return "", fmt.Errorf("redis: encode %s: %w", key, err)
		}
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return errExists
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, fieldData, raw, fieldVersion, 1)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, errExists) || errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("redis: create %s: %w", key, err)
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return "", err
		}
		return "1", nil
	}
	return "", fmt.Errorf("redis: load %s: record vanished after create race", key)
}

// write replaces the record at key. A non-empty version must match the
// stored one; the check and the write share one WATCH transaction.
func (s *Store) write(ctx context.Context, key string, value any, version string) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("redis: encode %s: %w", key, err)
	}

	if version == "" {
		var incr *redis.IntCmd
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldData, raw)
			incr = pipe.HIncrBy(ctx, key, fieldVersion, 1)
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("redis: write %s: %w", key, err)
		}
		return strconv.FormatInt(incr.Val(), 10), nil
	}

	var incr *redis.IntCmd
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return ports.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldData, raw)
			incr = pipe.HIncrBy(ctx, key, fieldVersion, 1)
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, ports.ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return "", fmt.Errorf("redis: write %s: %w", key, ports.ErrVersionConflict)
	case err != nil:
		return "", fmt.Errorf("redis: write %s: %w", key, err)
	}
	return strconv.FormatInt(incr.Val(), 10), nil
}

var (
	_ ports.TableStore   = (*Store)(nil)
	_ ports.ProfileStore = (*Store)(nil)
)
