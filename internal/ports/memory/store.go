// Package memory keeps tables and profiles in process memory. It backs the
// standalone server when no external store is configured and loses
// everything on restart.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"tcgtable/internal/domain"
	"tcgtable/internal/ports"
)

type tableRecord struct {
	session *domain.TableSession
	version int64
}

type profileRecord struct {
	profile *domain.PlayerProfile
	version int64
}

// Store implements ports.TableStore and ports.ProfileStore.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	tables   map[ports.TableKey]tableRecord
	profiles map[string]profileRecord
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		tables:   make(map[ports.TableKey]tableRecord),
		profiles: make(map[string]profileRecord),
	}
}

func (s *Store) LoadTable(ctx context.Context, key ports.TableKey) (*domain.TableSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tables[key]
	if !ok {
		rec = tableRecord{session: domain.NewTableSession(key.TableID, s.now()), version: 1}
		s.tables[key] = rec
	}
	out := rec.session.Clone()
	out.Version = strconv.FormatInt(rec.version, 10)
	return out, nil
}

func (s *Store) WriteTable(ctx context.Context, key ports.TableKey, session *domain.TableSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.tables[key]
	if session.Version != "" && session.Version != strconv.FormatInt(rec.version, 10) {
		return ports.ErrVersionConflict
	}
	rec = tableRecord{session: session.Clone(), version: rec.version + 1}
	s.tables[key] = rec
	session.Version = strconv.FormatInt(rec.version, 10)
	return nil
}

func (s *Store) LoadProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[playerID]
	if !ok {
		rec = profileRecord{profile: domain.NewPlayerProfile(playerID, s.now()), version: 1}
		s.profiles[playerID] = rec
	}
	out := rec.profile.Clone()
	out.Version = strconv.FormatInt(rec.version, 10)
	return out, nil
}

func (s *Store) WriteProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.profiles[profile.PlayerID]
	if profile.Version != "" && profile.Version != strconv.FormatInt(rec.version, 10) {
		return ports.ErrVersionConflict
	}
	rec = profileRecord{profile: profile.Clone(), version: rec.version + 1}
	s.profiles[profile.PlayerID] = rec
	profile.Version = strconv.FormatInt(rec.version, 10)
	return nil
}

var (
	_ ports.TableStore   = (*Store)(nil)
	_ ports.ProfileStore = (*Store)(nil)
)
