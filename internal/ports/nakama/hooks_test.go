package nakama

import (
	"context"
	"errors"
	"testing"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
)

func sessionToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestExtractUserIDFromToken(t *testing.T) {
	uid, err := extractUserIDFromToken(sessionToken(t, jwt.MapClaims{"uid": "user-42", "usn": "someone"}))
	if err != nil || uid != "user-42" {
		t.Fatalf("uid = %q, %v", uid, err)
	}

	if _, err := extractUserIDFromToken(sessionToken(t, jwt.MapClaims{"usn": "someone"})); err == nil {
		t.Fatal("expected error for missing uid")
	}
	if _, err := extractUserIDFromToken("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestAfterAuthenticateDeviceOnboardsNewPlayer(t *testing.T) {
	storage := newFakeStorage()
	hook := newOnboardingHook(NewNakamaStorageAdapter(storage))
	nk := &fakeNakama{}

	out := &api.Session{Created: true, Token: sessionToken(t, jwt.MapClaims{"uid": "user-1"})}
	if err := hook.AfterAuthenticateDevice(context.Background(), noopLogger{}, nil, nk, out, &api.AuthenticateDeviceRequest{}); err != nil {
		t.Fatalf("AfterAuthenticateDevice: %v", err)
	}
	if nk.updated["user-1"] == "" {
		t.Fatal("display name not applied")
	}
	if _, ok := storage.value(profileCollection, "user-1"); !ok {
		t.Fatal("player profile not created")
	}
}

func TestAfterAuthenticateDeviceSkipsExistingAccounts(t *testing.T) {
	storage := newFakeStorage()
	hook := newOnboardingHook(NewNakamaStorageAdapter(storage))

	out := &api.Session{Created: false}
	if err := hook.AfterAuthenticateDevice(asUser("user-1"), noopLogger{}, nil, &fakeNakama{}, out, nil); err != nil {
		t.Fatalf("AfterAuthenticateDevice: %v", err)
	}
	if len(storage.writes) != 0 {
		t.Fatal("existing account was onboarded again")
	}
}

func TestAfterAuthenticateDeviceToleratesRenameFailure(t *testing.T) {
	storage := newFakeStorage()
	hook := newOnboardingHook(NewNakamaStorageAdapter(storage))
	nk := &fakeNakama{updateErr: errors.New("name taken")}

	out := &api.Session{Created: true}
	if err := hook.AfterAuthenticateDevice(asUser("user-1"), noopLogger{}, nil, nk, out, nil); err != nil {
		t.Fatalf("AfterAuthenticateDevice: %v", err)
	}
	if _, ok := storage.value(profileCollection, "user-1"); !ok {
		t.Fatal("player profile not created")
	}
}

func TestAfterAuthenticateDeviceFailsWhenProfileCannotBeCreated(t *testing.T) {
	storage := newFakeStorage()
	storage.writeErr = errStorageDown
	hook := newOnboardingHook(NewNakamaStorageAdapter(storage))

	out := &api.Session{Created: true}
	if err := hook.AfterAuthenticateDevice(asUser("user-1"), noopLogger{}, nil, &fakeNakama{}, out, nil); !errors.Is(err, errStorageDown) {
		t.Fatalf("err = %v, want %v", err, errStorageDown)
	}
}
