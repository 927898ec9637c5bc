package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/st0x/st0x-api/internal/auth"
	"github.com/st0x/st0x-api/internal/model"
	"github.com/st0x/st0x-api/internal/store"
)

// KeyService owns the API key lifecycle: create, list, revoke, delete.
// It is the backing implementation for both the operator CLI and the admin
// HTTP endpoints.
type KeyService struct {
	store  *store.Store
	hasher *auth.Hasher
}

func NewKeyService(st *store.Store, hasher *auth.Hasher) *KeyService {
	return &KeyService{store: st, hasher: hasher}
}

// Create mints a new API key. The returned CreatedKey carries the plaintext
// secret; this is the only moment it exists outside client memory. It is
// never stored, never logged, and cannot be retrieved again.
func (s *KeyService) Create(ctx context.Context, label, owner string, isAdmin bool) (*model.CreatedKey, error) {
	secret, err := s.hasher.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	key := &model.APIKey{
		KeyID:      uuid.NewString(),
		SecretHash: hash,
		Label:      label,
		Owner:      owner,
		IsAdmin:    isAdmin,
		Active:     true,
	}
	if err := s.store.InsertAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("persist api key: %w", err)
	}

	return &model.CreatedKey{
		KeyID:  key.KeyID,
		Secret: secret,
		Label:  label,
		Owner:  owner,
	}, nil
}

// List returns metadata for all keys. Secret hashes are never included.
func (s *KeyService) List(ctx context.Context) ([]model.APIKey, error) {
	return s.store.ListAPIKeys(ctx)
}

// Revoke soft-disables a key. Idempotent; unknown IDs fail with
// store.ErrNotFound. The record survives for audit purposes.
func (s *KeyService) Revoke(ctx context.Context, keyID string) error {
	return s.store.RevokeAPIKey(ctx, keyID)
}

// Delete permanently removes a key record. Unknown IDs, including a
// previously deleted one, fail with store.ErrNotFound.
func (s *KeyService) Delete(ctx context.Context, keyID string) error {
	return s.store.DeleteAPIKey(ctx, keyID)
}
