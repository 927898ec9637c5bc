package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/st0x/st0x-api/internal/auth"
	"github.com/st0x/st0x-api/internal/model"
	"github.com/st0x/st0x-api/internal/store"
)

var (
	// ErrInvalidCredentials covers unknown key IDs, revoked keys, and
	// wrong secrets. The three cases are deliberately merged so callers
	// cannot enumerate which one occurred.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMalformedCredentials indicates the request carried no parseable
	// credential pair. The HTTP response is identical to
	// ErrInvalidCredentials.
	ErrMalformedCredentials = errors.New("malformed credentials")
)

// AuthService is the per-request authentication gate. It never mutates
// store state; its only side effect is the lookup read.
type AuthService struct {
	store  *store.Store
	hasher *auth.Hasher

	// verifySlots bounds the number of concurrent Argon2 computations so
	// a burst of requests cannot exhaust memory. Hashing never runs while
	// holding any store resource.
	verifySlots chan struct{}
}

func NewAuthService(st *store.Store, hasher *auth.Hasher) *AuthService {
	return &AuthService{
		store:       st,
		hasher:      hasher,
		verifySlots: make(chan struct{}, runtime.GOMAXPROCS(0)),
	}
}

// Authenticate verifies a credential pair and returns the authenticated
// identity, or ErrInvalidCredentials. Every rejecting path performs a full
// hash comparison: when the key ID is unknown the secret is verified
// against a precomputed dummy hash, and a revoked key is checked only
// after verification, so none of the rejections short-circuits the cost.
func (s *AuthService) Authenticate(ctx context.Context, keyID, secret string) (*model.Identity, error) {
	key, err := s.store.GetAPIKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if verr := s.verify(ctx, secret, ""); verr != nil {
				return nil, verr
			}
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("credential lookup: %w", err)
	}

	match := false
	if err := s.verifyInto(ctx, secret, key.SecretHash, &match); err != nil {
		return nil, err
	}
	if !match || !key.Active {
		return nil, ErrInvalidCredentials
	}

	return &model.Identity{KeyID: key.KeyID, IsAdmin: key.IsAdmin}, nil
}

// verify runs a hash comparison against storedHash (or the dummy hash when
// storedHash is empty) on a bounded slot, discarding the result. Returns an
// error only when the context is cancelled mid-verification.
func (s *AuthService) verify(ctx context.Context, secret, storedHash string) error {
	var discard bool
	return s.verifyInto(ctx, secret, storedHash, &discard)
}

func (s *AuthService) verifyInto(ctx context.Context, secret, storedHash string, match *bool) error {
	select {
	case s.verifySlots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		defer func() { <-s.verifySlots }()
		if storedHash == "" {
			s.hasher.VerifyDummy(secret)
		} else {
			*match = s.hasher.Verify(secret, storedHash)
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The goroutine finishes its computation and releases the slot;
		// the request stops waiting on it.
		return ctx.Err()
	}
}
