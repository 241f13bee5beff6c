package commands

import (
	"fmt"

	"github.com/dynamo-works/claude-engine/internal/catalog"
	keysvc "github.com/dynamo-works/claude-engine/internal/services/key"
	"github.com/spf13/cobra"
)

func NewKeyCommand() *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys",
	}

	keyCmd.AddCommand(newKeyCreateCommand())
	keyCmd.AddCommand(newKeyListCommand())
	keyCmd.AddCommand(newKeyRevokeCommand())
	keyCmd.AddCommand(newKeyRotateCommand())

	return keyCmd
}

func newKeyCreateCommand() *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if !catalog.IsKnownRole(role) {
				role = catalog.DefaultRole
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}

			svc := keysvc.NewService(db, newCLILogger())
			res, err := svc.Create(cmd.Context(), email, role)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return printJSON(map[string]interface{}{
					"id":     res.Key.ID.String(),
					"rawKey": res.RawKey,
					"role":   res.Key.Role,
				})
			}

			fmt.Printf("Created key %s for %s (role %s)\n", res.Key.ID, email, role)
			fmt.Printf("Raw key (shown once): %s\n", res.RawKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "owner email")
	cmd.Flags().StringVar(&role, "role", catalog.DefaultRole, "role for the key")
	return cmd
}

func newKeyListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keys (display prefix only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}

			svc := keysvc.NewService(db, newCLILogger())
			keys, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return printJSON(keys)
			}

			for _, k := range keys {
				state := "active"
				if !k.IsActive {
					state = "revoked"
				}
				fmt.Printf("%s  %s…  %-24s %-12s %s\n",
					k.ID, k.KeyPrefix, k.UserEmail, k.Role, state)
			}
			return nil
		},
	}
}

func newKeyRevokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}

			svc := keysvc.NewService(db, newCLILogger())
			changed, err := svc.Revoke(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if changed {
				fmt.Println("Key revoked")
			} else {
				fmt.Println("Key was already revoked")
			}
			return nil
		},
	}
}

func newKeyRotateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <key-id>",
		Short: "Rotate a key, revoking the old one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}

			svc := keysvc.NewService(db, newCLILogger())
			res, err := svc.Rotate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Rotated. New key id: %s\n", res.Key.ID)
			fmt.Printf("Raw key (shown once): %s\n", res.RawKey)
			return nil
		},
	}
}
