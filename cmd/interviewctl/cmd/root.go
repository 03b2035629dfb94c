package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"interview-sync/internal/common/config"
	"interview-sync/internal/common/database"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "interviewctl",
	Short: "interviewctl manages the interview sync service",
	Long: `interviewctl is the operator tool for the interview sync service.

It talks to the service database directly and shares the service configuration
(configs/config.yaml, .env and environment variables).

Common workflows:

  Apply schema migrations:
    interviewctl migrate up

  Register a group and print its API key:
    interviewctl groups create --name "Acme" --external-id acme-1

  Count orphaned rows for a group:
    interviewctl orphans --group <group-id> --known org-1,org-2

  Sign a callback body for local testing:
    interviewctl webhook sign --secret s3cret --body '{"interviewId":"..."}'`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}

// openDB connects to the configured postgres database.
func openDB(ctx context.Context) (*database.PostgresClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return database.NewPostgres(ctx, cfg.Database.Postgres, 10*time.Second)
}
