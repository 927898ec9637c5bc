package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/st0x/st0x-api/internal/auth"
	"github.com/st0x/st0x-api/internal/metrics"
	"github.com/st0x/st0x-api/internal/model"
	"github.com/st0x/st0x-api/internal/server"
	"github.com/st0x/st0x-api/internal/service"
	"github.com/st0x/st0x-api/internal/store"
)

func newServeCmd(version string) *cobra.Command {
	var (
		port      int
		host      string
		dev       bool
		globalRPM int
		perKeyRPM int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the st0x API server",
		Long:  "Start the HTTP server. All routes except /health require a valid API key via Basic auth.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(version, host, port, globalRPM, perKeyRPM, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")
	cmd.Flags().IntVar(&globalRPM, "global-rpm", 600, "Global per-IP rate limit (requests per minute, 0 disables)")
	cmd.Flags().IntVar(&perKeyRPM, "per-key-rpm", 120, "Per-key rate limit (requests per minute, 0 disables)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("rate_limit.global_rpm", cmd.Flags().Lookup("global-rpm"))
	viper.BindPFlag("rate_limit.per_key_rpm", cmd.Flags().Lookup("per-key-rpm"))

	return cmd
}

func runServe(version, host string, port, globalRPM, perKeyRPM int, dev bool) error {
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// 1. Open the credential store (SQLite, WAL mode).
	st, err := store.NewStore(resolveDataDir())
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()
	logger.Info("credential store initialized", "path", resolveDataDir())

	// 2. Seed the registry URL from config if the database has none yet.
	if registryURL := viper.GetString("registry_url"); registryURL != "" {
		if _, err := st.GetSetting(context.Background(), model.SettingRegistryURL); errors.Is(err, store.ErrNotFound) {
			if err := st.UpsertSetting(context.Background(), model.SettingRegistryURL, registryURL); err != nil {
				return fmt.Errorf("seed registry_url: %w", err)
			}
			logger.Info("seeded registry_url from config", "url", registryURL)
		}
	}

	// 3. Wire the hasher, gate, and lifecycle service.
	hasher, err := auth.NewHasher()
	if err != nil {
		return fmt.Errorf("init hasher: %w", err)
	}
	gate := service.NewAuthService(st, hasher)
	keys := service.NewKeyService(st, hasher)

	// 4. Warn on an empty keyring: every route except /health would 401.
	existing, err := keys.List(context.Background())
	if err != nil {
		logger.Warn("failed to inspect keyring", "error", err)
	} else if len(existing) == 0 {
		logger.Warn("no API keys exist - run: st0x keys create")
	}

	// 5. Build and start the HTTP server.
	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		GlobalRPM:       globalRPM,
		PerKeyRPM:       perKeyRPM,
	}
	srv := server.New(srvCfg, st, gate, keys, metrics.New(), logger)

	fmt.Printf("→ st0x %s\n", version)
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Health:  http://%s:%d/health\n", host, port)
	fmt.Printf("→ Metrics: http://%s:%d/metrics (authenticated)\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}
