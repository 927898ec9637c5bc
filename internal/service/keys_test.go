package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/st0x/st0x-api/internal/auth"
	"github.com/st0x/st0x-api/internal/store"
)

func newTestServices(t *testing.T) (*KeyService, *AuthService, *store.Store) {
	t.Helper()
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hasher, err := auth.NewHasher()
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return NewKeyService(st, hasher), NewAuthService(st, hasher), st
}

func TestCreateKey(t *testing.T) {
	keys, _, st := newTestServices(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, "partner-x", "a@b.com", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.KeyID == "" || created.Secret == "" {
		t.Fatal("created key missing id or secret")
	}
	if _, err := uuid.Parse(created.KeyID); err != nil {
		t.Errorf("key id %q is not a UUID: %v", created.KeyID, err)
	}

	// The persisted record must carry a hash, not the secret.
	stored, err := st.GetAPIKey(ctx, created.KeyID)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if stored.SecretHash == created.Secret {
		t.Error("plaintext secret persisted")
	}
	if stored.SecretHash == "" {
		t.Error("no hash persisted")
	}
	if !stored.Active {
		t.Error("new key should be active")
	}
	if stored.IsAdmin {
		t.Error("non-admin create produced an admin key")
	}
	if stored.Label != "partner-x" || stored.Owner != "a@b.com" {
		t.Errorf("metadata mismatch: label=%q owner=%q", stored.Label, stored.Owner)
	}
}

func TestCreateAdminKey(t *testing.T) {
	keys, gate, _ := newTestServices(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, "root", "ops@st0x.io", true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	identity, err := gate.Authenticate(ctx, created.KeyID, created.Secret)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !identity.IsAdmin {
		t.Error("admin key authenticated without admin identity")
	}
}

func TestListNeverExposesSecrets(t *testing.T) {
	keys, _, _ := newTestServices(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, "listed", "a@b.com", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := keys.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d keys, want 1", len(list))
	}
	if list[0].SecretHash != "" {
		t.Error("List exposed a secret hash")
	}
	if list[0].KeyID != created.KeyID {
		t.Errorf("got key id %s, want %s", list[0].KeyID, created.KeyID)
	}
}

func TestRevokeAndDeleteLifecycle(t *testing.T) {
	keys, gate, _ := newTestServices(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, "lifecycle", "a@b.com", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := gate.Authenticate(ctx, created.KeyID, created.Secret); err != nil {
		t.Fatalf("Authenticate before revoke: %v", err)
	}

	if err := keys.Revoke(ctx, created.KeyID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	// Idempotent.
	if err := keys.Revoke(ctx, created.KeyID); err != nil {
		t.Errorf("second Revoke: %v", err)
	}

	if _, err := gate.Authenticate(ctx, created.KeyID, created.Secret); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("revoked key authenticated: %v", err)
	}

	if err := keys.Delete(ctx, created.KeyID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := keys.Delete(ctx, created.KeyID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	list, err := keys.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("deleted key still listed")
	}
}

func TestRevokeUnknownKey(t *testing.T) {
	keys, _, _ := newTestServices(t)

	if err := keys.Revoke(context.Background(), uuid.NewString()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
