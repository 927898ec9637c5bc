package cli

import (
	"os"

	"github.com/st0x/st0x-api/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from the --data-dir flag,
// ST0X_DATA_DIR env var, or ~/.st0x as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("ST0X_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.st0x"
}

// openStore opens the SQLite credential store under the resolved data dir.
func openStore() (*store.Store, error) {
	return store.NewStore(resolveDataDir())
}
