package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/st0x/st0x-api/internal/model"
)

// readRetries is the number of attempts a read operation makes against a
// transiently busy database before surfacing the failure. Writes are never
// retried: a retry after an ambiguous failure could apply twice.
const (
	readRetries    = 3
	readRetryDelay = 25 * time.Millisecond
)

// Store persists API key credentials and settings in SQLite. Writes are
// serialized onto a single connection; WAL mode keeps readers unblocked
// while a write is in flight.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the credential database under dataDir. Pass
// an empty string for an in-memory database.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "st0x.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate credential database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// InsertAPIKey persists a new credential record. The CreatedAt and UpdatedAt
// fields on key are populated before the insert. A duplicate key ID fails
// with ErrConflict; the uniqueness is enforced by the primary key, not by a
// read-then-write check.
func (s *Store) InsertAPIKey(ctx context.Context, key *model.APIKey) error {
	now := time.Now().UTC()
	key.CreatedAt = now
	key.UpdatedAt = now

	const q = `INSERT INTO api_keys
		(key_id, secret_hash, label, owner, is_admin, active, created_at, updated_at)
		VALUES
		(:key_id, :secret_hash, :label, :owner, :is_admin, :active, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, key); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKey returns the credential record for a key ID, including the secret
// hash. Only the verification path should see the returned hash.
func (s *Store) GetAPIKey(ctx context.Context, keyID string) (*model.APIKey, error) {
	var key model.APIKey
	err := s.readWithRetry(ctx, func() error {
		return s.db.GetContext(ctx, &key, "SELECT * FROM api_keys WHERE key_id = ?", keyID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &key, nil
}

// ListAPIKeys returns all credential records in creation order with the
// secret hash cleared.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	err := s.readWithRetry(ctx, func() error {
		return s.db.SelectContext(ctx, &keys, "SELECT * FROM api_keys ORDER BY rowid")
	})
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	for i := range keys {
		keys[i].SecretHash = ""
	}
	return keys, nil
}

// RevokeAPIKey marks a key as inactive. Revoking an already-revoked key is
// a no-op success; an unknown key ID fails with ErrNotFound. There is no
// path that sets active back to true.
func (s *Store) RevokeAPIKey(ctx context.Context, keyID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET active = 0, updated_at = ? WHERE key_id = ?",
		time.Now().UTC(), keyID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey permanently removes a credential record. Unlike revoke this
// is irreversible, and a second delete of the same ID fails with ErrNotFound.
func (s *Store) DeleteAPIKey(ctx context.Context, keyID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE key_id = ?", keyID)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

type settingRow struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	UpdatedAt string `db:"updated_at"`
}

func (r settingRow) toModel() (model.Setting, error) {
	ts, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		return model.Setting{}, fmt.Errorf("parse setting timestamp %q: %w", r.UpdatedAt, err)
	}
	return model.Setting{Key: r.Key, Value: r.Value, UpdatedAt: ts}, nil
}

// UpsertSetting creates or overwrites a setting. The updated_at column is
// refreshed by the database trigger on the update path and by the column
// default on the insert path.
func (s *Store) UpsertSetting(ctx context.Context, key, value string) error {
	const q = `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// GetSetting returns a setting by key, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (*model.Setting, error) {
	var row settingRow
	err := s.readWithRetry(ctx, func() error {
		return s.db.GetContext(ctx, &row, "SELECT * FROM settings WHERE key = ?", key)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	setting, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// readWithRetry runs a read operation, retrying a bounded number of times
// when the database is transiently busy or locked.
func (s *Store) readWithRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < readRetries; attempt++ {
		if err = op(); err == nil || !isBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readRetryDelay):
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed: api_keys.key_id")
}

func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy")
}
