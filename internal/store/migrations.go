package store

import (
	"fmt"
	"strings"
)

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS api_keys (
			key_id TEXT PRIMARY KEY,
			secret_hash TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			owner TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// v2: Admin flag. DEFAULT 0 keeps rows issued before the column
		// existed valid without a data backfill.
		`ALTER TABLE api_keys ADD COLUMN is_admin INTEGER NOT NULL DEFAULT 0`,

		// v3: Key-value settings. updated_at is maintained by a trigger so
		// it refreshes on every update regardless of which client wrote.
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		`CREATE TRIGGER IF NOT EXISTS settings_touch_updated_at
			AFTER UPDATE ON settings
			FOR EACH ROW
			BEGIN
				UPDATE settings
				SET updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
				WHERE key = NEW.key;
			END`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// SQLite ALTER TABLE ADD COLUMN fails if the column already
			// exists; treat "duplicate column" as a no-op so migrations
			// stay idempotent.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
