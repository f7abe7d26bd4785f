package nakama

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type storedObject struct {
	value   string
	version int
}

// fakeStorage mimics Nakama storage version semantics: "*" creates only,
// any other non-empty version must match.
type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string]storedObject
	readErr  error
	writeErr error
	writes   []*runtime.StorageWrite
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]storedObject)}
}

func storageKey(collection, key string) string {
	return collection + "/" + key
}

func (f *fakeStorage) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []*api.StorageObject
	for _, r := range reads {
		obj, ok := f.objects[storageKey(r.Collection, r.Key)]
		if !ok {
			continue
		}
		out = append(out, &api.StorageObject{
			Collection: r.Collection,
			Key:        r.Key,
			Value:      obj.value,
			Version:    strconv.Itoa(obj.version),
		})
	}
	return out, nil
}

func (f *fakeStorage) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	var acks []*api.StorageObjectAck
	for _, w := range writes {
		id := storageKey(w.Collection, w.Key)
		current, exists := f.objects[id]
		switch {
		case w.Version == "*" && exists:
			return nil, runtime.ErrStorageRejectedVersion
		case w.Version != "" && w.Version != "*" && (!exists || w.Version != strconv.Itoa(current.version)):
			return nil, runtime.ErrStorageRejectedVersion
		}
		next := storedObject{value: w.Value, version: current.version + 1}
		f.objects[id] = next
		f.writes = append(f.writes, w)
		acks = append(acks, &api.StorageObjectAck{
			Collection: w.Collection,
			Key:        w.Key,
			Version:    strconv.Itoa(next.version),
		})
	}
	return acks, nil
}

func (f *fakeStorage) value(collection, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[storageKey(collection, key)]
	return obj.value, ok
}

// fakeNakama overrides the account call used by onboarding. Any other
// NakamaModule method panics through the nil embedded interface.
type fakeNakama struct {
	runtime.NakamaModule
	updated   map[string]string
	updateErr error
}

func (f *fakeNakama) AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[string]string)
	}
	f.updated[userID] = displayName
	return nil
}

var errStorageDown = errors.New("storage down")
