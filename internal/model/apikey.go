package model

import "time"

// APIKey represents one issued credential pair. The key ID is the public
// half (used as the Basic auth username); the secret is never stored, only
// its Argon2id hash.
type APIKey struct {
	KeyID      string    `json:"key_id" db:"key_id"`
	SecretHash string    `json:"-" db:"secret_hash"` // Argon2id PHC string, never expose
	Label      string    `json:"label" db:"label"`
	Owner      string    `json:"owner" db:"owner"`
	IsAdmin    bool      `json:"is_admin" db:"is_admin"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CreatedKey is the one-time response to a key creation. Secret is the
// plaintext credential; it exists only in this value and is never persisted.
type CreatedKey struct {
	KeyID  string `json:"key_id"`
	Secret string `json:"secret"`
	Label  string `json:"label"`
	Owner  string `json:"owner"`
}

// Identity is the authenticated principal attached to a request after the
// gate admits it.
type Identity struct {
	KeyID   string
	IsAdmin bool
}
