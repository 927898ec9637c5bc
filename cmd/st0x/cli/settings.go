package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/st0x/st0x-api/internal/store"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persisted server settings",
		Long:  "Read and write key/value settings stored in the server database, such as the registry URL.",
	}

	cmd.AddCommand(newSettingsGetCmd())
	cmd.AddCommand(newSettingsSetCmd())

	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsGet(args[0])
		},
	}
}

func runSettingsGet(key string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	setting, err := st.GetSetting(context.Background(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no setting named %q", key)
		}
		return fmt.Errorf("get setting: %w", err)
	}

	fmt.Printf("%s = %s\n", setting.Key, setting.Value)
	fmt.Printf("  updated: %s\n", setting.UpdatedAt.Format(time.RFC3339))
	return nil
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Create or overwrite a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(args[0], args[1])
		},
	}
}

func runSettingsSet(key, value string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.UpsertSetting(context.Background(), key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}

	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}
