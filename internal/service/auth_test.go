package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestAuthenticateValidKey(t *testing.T) {
	keys, gate, _ := newTestServices(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, "valid", "a@b.com", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	identity, err := gate.Authenticate(ctx, created.KeyID, created.Secret)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.KeyID != created.KeyID {
		t.Errorf("identity key id %s, want %s", identity.KeyID, created.KeyID)
	}
	if identity.IsAdmin {
		t.Error("non-admin key produced admin identity")
	}
}

func TestAuthenticateRejectionsAreIndistinguishable(t *testing.T) {
	keys, gate, _ := newTestServices(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, "target", "a@b.com", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	revoked, err := keys.Create(ctx, "revoked", "a@b.com", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := keys.Revoke(ctx, revoked.KeyID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	cases := []struct {
		name   string
		keyID  string
		secret string
	}{
		{"unknown id", uuid.NewString(), created.Secret},
		{"wrong secret", created.KeyID, "not-the-secret"},
		{"revoked key, correct secret", revoked.KeyID, revoked.Secret},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gate.Authenticate(ctx, tc.keyID, tc.secret)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("got %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestAuthenticateCancelledContext(t *testing.T) {
	keys, gate, _ := newTestServices(t)

	created, err := keys.Create(context.Background(), "cancelled", "a@b.com", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = gate.Authenticate(ctx, created.KeyID, created.Secret)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("cancellation must not look like a credential failure")
	}

	// The store must be intact: a fresh context still authenticates.
	if _, err := gate.Authenticate(context.Background(), created.KeyID, created.Secret); err != nil {
		t.Errorf("Authenticate after cancellation: %v", err)
	}
}

func TestAuthenticateConcurrent(t *testing.T) {
	keys, gate, _ := newTestServices(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, "concurrent", "a@b.com", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const n = 16
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := gate.Authenticate(ctx, created.KeyID, created.Secret)
			errCh <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errCh; err != nil {
			t.Errorf("concurrent Authenticate: %v", err)
		}
	}
}
