package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halim/toolgate/pkg/security"
)

var (
	secretUser     string
	secretOrg      string
	secretProvider string
	secretTag      string
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage stored credentials",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <value>",
	Short: "Store a credential for a user and provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a stored credential",
	RunE:  runSecretDelete,
}

func init() {
	for _, cmd := range []*cobra.Command{secretSetCmd, secretDeleteCmd} {
		cmd.Flags().StringVar(&secretUser, "user", "", "user the credential belongs to")
		cmd.Flags().StringVar(&secretOrg, "org", "", "organization the credential belongs to")
		cmd.Flags().StringVar(&secretProvider, "provider", "", "utility provider namespace")
		cmd.Flags().StringVar(&secretTag, "tag", "", `secret type tag (e.g. "api key", "token", "username", "password")`)
		cmd.MarkFlagRequired("user")
		cmd.MarkFlagRequired("provider")
		cmd.MarkFlagRequired("tag")
	}

	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
	rootCmd.AddCommand(secretCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	_, db, log, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	defer log.Close()

	key := security.SecretKey{
		Scope:          security.ScopeUser,
		UserID:         secretUser,
		OrganizationID: secretOrg,
		Provider:       secretProvider,
		Tag:            secretTag,
	}
	if err := db.SetSecret(cmd.Context(), key, args[0]); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	fmt.Printf("Stored %s secret for provider %s\n", secretTag, secretProvider)
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	_, db, log, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	defer log.Close()

	key := security.SecretKey{
		Scope:          security.ScopeUser,
		UserID:         secretUser,
		OrganizationID: secretOrg,
		Provider:       secretProvider,
		Tag:            secretTag,
	}
	if err := db.DeleteSecret(cmd.Context(), key); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	fmt.Printf("Deleted %s secret for provider %s\n", secretTag, secretProvider)
	return nil
}
