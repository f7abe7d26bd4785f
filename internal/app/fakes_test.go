package app

import (
	"context"
	"strconv"
	"sync"
	"time"

	"tcgtable/internal/domain"
	"tcgtable/internal/ports"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeTableStore mimics a document store: plain get/put with a version
// counter per key and no locking across a load/write pair.
type fakeTableStore struct {
	mu       sync.Mutex
	clock    *testClock
	records  map[ports.TableKey]*domain.TableSession
	versions map[ports.TableKey]int
	loadErr  error
	writeErr error
	writes   int
	// writeLog records the slot-0 occupant of every successful write, in order.
	writeLog []string
	// afterLoad runs outside the lock once a load has read the record.
	afterLoad func()
}

func newFakeTableStore(clock *testClock) *fakeTableStore {
	return &fakeTableStore{
		clock:    clock,
		records:  make(map[ports.TableKey]*domain.TableSession),
		versions: make(map[ports.TableKey]int),
	}
}

func (f *fakeTableStore) LoadTable(ctx context.Context, key ports.TableKey) (*domain.TableSession, error) {
	f.mu.Lock()
	if f.loadErr != nil {
		f.mu.Unlock()
		return nil, f.loadErr
	}
	rec, ok := f.records[key]
	if !ok {
		rec = domain.NewTableSession(key.TableID, f.clock.Now())
		f.records[key] = rec
		f.versions[key] = 1
	}
	out := rec.Clone()
	out.Version = strconv.Itoa(f.versions[key])
	hook := f.afterLoad
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeTableStore) WriteTable(ctx context.Context, key ports.TableKey, session *domain.TableSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if session.Version != "" && session.Version != strconv.Itoa(f.versions[key]) {
		return ports.ErrVersionConflict
	}
	f.versions[key]++
	f.records[key] = session.Clone()
	session.Version = strconv.Itoa(f.versions[key])
	f.writes++
	f.writeLog = append(f.writeLog, session.Teams[0].PlayerID)
	return nil
}

func (f *fakeTableStore) put(key ports.TableKey, session *domain.TableSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[key] = session.Clone()
	f.versions[key]++
}

func (f *fakeTableStore) get(key ports.TableKey) *domain.TableSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[key].Clone()
}

func (f *fakeTableStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fakeProfileStore struct {
	mu        sync.Mutex
	clock     *testClock
	records   map[string]*domain.PlayerProfile
	versions  map[string]int
	loadErr   error
	writeErrs map[string]error
	writes    []string
}

func newFakeProfileStore(clock *testClock) *fakeProfileStore {
	return &fakeProfileStore{
		clock:     clock,
		records:   make(map[string]*domain.PlayerProfile),
		versions:  make(map[string]int),
		writeErrs: make(map[string]error),
	}
}

func (f *fakeProfileStore) LoadProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	rec, ok := f.records[playerID]
	if !ok {
		rec = domain.NewPlayerProfile(playerID, f.clock.Now())
		f.records[playerID] = rec
		f.versions[playerID] = 1
	}
	out := rec.Clone()
	out.Version = strconv.Itoa(f.versions[playerID])
	return out, nil
}

func (f *fakeProfileStore) WriteProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErrs[profile.PlayerID]; err != nil {
		return err
	}
	if profile.Version != "" && profile.Version != strconv.Itoa(f.versions[profile.PlayerID]) {
		return ports.ErrVersionConflict
	}
	f.versions[profile.PlayerID]++
	f.records[profile.PlayerID] = profile.Clone()
	profile.Version = strconv.Itoa(f.versions[profile.PlayerID])
	f.writes = append(f.writes, profile.PlayerID)
	return nil
}

func (f *fakeProfileStore) get(playerID string) *domain.PlayerProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[playerID].Clone()
}

type fakeEntitlements struct {
	denied map[string]bool
	err    error
}

func (f fakeEntitlements) DeckAllowed(ctx context.Context, playerID, deckSerial string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return !f.denied[deckSerial], nil
}
