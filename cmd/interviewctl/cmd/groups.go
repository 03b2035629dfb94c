package cmd

import (
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"interview-sync/internal/common/auth"
	"interview-sync/internal/models"
	"interview-sync/internal/store/postgres"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage tenant groups",
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a group and issue its API key",
	Long: `Create a group and print a freshly generated API key. Only the hash of the
key is stored, so the printed value cannot be recovered later.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		externalID, _ := cmd.Flags().GetString("external-id")
		if name == "" || externalID == "" {
			return errors.New("--name and --external-id are required")
		}
		secret, _ := cmd.Flags().GetString("webhook-secret")
		atsURL, _ := cmd.Flags().GetString("ats-url")
		timeoutMs, _ := cmd.Flags().GetInt("request-timeout-ms")

		key, hash, err := auth.GenerateKey()
		if err != nil {
			return err
		}

		pg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pg.Close()

		g := &models.Group{
			ID:               uuid.New().String(),
			Name:             name,
			ExternalGroupID:  externalID,
			APIKeyHash:       hash,
			ATSURL:           atsURL,
			WebhookSecret:    secret,
			RequestTimeoutMs: timeoutMs,
			IsActive:         true,
		}
		if err := postgres.New(pg.DB).CreateGroup(cmd.Context(), g); err != nil {
			return err
		}

		cmd.Printf("group:   %s\n", g.ID)
		cmd.Printf("api key: %s\n", key)
		return nil
	},
}

func init() {
	f := groupsCreateCmd.Flags()
	f.String("name", "", "display name")
	f.String("external-id", "", "external group id")
	f.String("webhook-secret", "", "secret used to verify orchestrator callbacks for this group")
	f.String("ats-url", "", "ATS base URL")
	f.Int("request-timeout-ms", 0, "per-group orchestrator timeout (0 uses the service default)")

	groupsCmd.AddCommand(groupsCreateCmd)
	rootCmd.AddCommand(groupsCmd)
}
