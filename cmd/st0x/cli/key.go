package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/st0x/st0x-api/internal/auth"
	"github.com/st0x/st0x-api/internal/service"
	"github.com/st0x/st0x-api/internal/store"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"key"},
		Short:   "Manage API keys",
		Long:    "Create, list, revoke, and delete the API keys used to authenticate against the st0x REST API.",
	}

	cmd.AddCommand(newKeysCreateCmd())
	cmd.AddCommand(newKeysListCmd())
	cmd.AddCommand(newKeysRevokeCmd())
	cmd.AddCommand(newKeysDeleteCmd())

	return cmd
}

// openKeyService wires a KeyService over the local store. The returned
// closer must be deferred by the caller.
func openKeyService() (*service.KeyService, func() error, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	hasher, err := auth.NewHasher()
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("init hasher: %w", err)
	}
	return service.NewKeyService(st, hasher), st.Close, nil
}

// ---------- keys create ----------

func newKeysCreateCmd() *cobra.Command {
	var (
		label   string
		owner   string
		isAdmin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key. The secret is shown once and cannot be retrieved again.",
		Example: `  st0x keys create --label "partner-x" --owner a@b.com
  st0x keys create --label "ops root" --owner ops@st0x.io --admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysCreate(label, owner, isAdmin)
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Human-readable label for the key (required)")
	cmd.Flags().StringVar(&owner, "owner", "", "Contact or owner of the key (required)")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant the key access to admin routes")
	cmd.MarkFlagRequired("label")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runKeysCreate(label, owner string, isAdmin bool) error {
	keys, closer, err := openKeyService()
	if err != nil {
		return err
	}
	defer closer()

	created, err := keys.Create(context.Background(), label, owner, isAdmin)
	if err != nil {
		return fmt.Errorf("create key: %w", err)
	}

	fmt.Println("API key created:")
	fmt.Println()
	fmt.Printf("  Key ID: %s\n", created.KeyID)
	fmt.Printf("  Secret: %s\n", created.Secret)
	fmt.Printf("  Label:  %s\n", created.Label)
	fmt.Printf("  Owner:  %s\n", created.Owner)
	if isAdmin {
		fmt.Println("  Admin:  yes")
	}
	fmt.Println()
	fmt.Println("  Save the secret now - it cannot be retrieved again.")
	fmt.Println("  Authenticate with Basic auth: username = key ID, password = secret.")
	return nil
}

// ---------- keys list ----------

func newKeysListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeysList(jsonOutput bool) error {
	keys, closer, err := openKeyService()
	if err != nil {
		return err
	}
	defer closer()

	list, err := keys.List(context.Background())
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Println("No API keys configured. Use 'st0x keys create' to create one.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-24s %-6s %-6s %-20s\n", "KEY ID", "LABEL", "OWNER", "ADMIN", "ACTIVE", "CREATED")
	for _, k := range list {
		admin, active := "no", "yes"
		if k.IsAdmin {
			admin = "yes"
		}
		if !k.Active {
			active = "no"
		}
		fmt.Printf("%-36s %-20s %-24s %-6s %-6s %-20s\n",
			k.KeyID, k.Label, k.Owner, admin, active, k.CreatedAt.Format(time.RFC3339))
	}

	return nil
}

// ---------- keys revoke ----------

func newKeysRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Long:  "Deactivate an API key. The record is kept for audit; use 'keys delete' to remove it permanently.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysRevoke(args[0])
		},
	}
}

func runKeysRevoke(keyID string) error {
	keys, closer, err := openKeyService()
	if err != nil {
		return err
	}
	defer closer()

	if err := keys.Revoke(context.Background(), keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no API key with id %q", keyID)
		}
		return fmt.Errorf("revoke key: %w", err)
	}

	fmt.Printf("Revoked API key %s\n", keyID)
	return nil
}

// ---------- keys delete ----------

func newKeysDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Permanently delete an API key",
		Long:  "Remove an API key record. Unlike revoke this is irreversible.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysDelete(args[0])
		},
	}
}

func runKeysDelete(keyID string) error {
	keys, closer, err := openKeyService()
	if err != nil {
		return err
	}
	defer closer()

	if err := keys.Delete(context.Background(), keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no API key with id %q", keyID)
		}
		return fmt.Errorf("delete key: %w", err)
	}

	fmt.Printf("Deleted API key %s\n", keyID)
	return nil
}
