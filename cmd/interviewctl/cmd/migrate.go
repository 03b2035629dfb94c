package cmd

import (
	"github.com/spf13/cobra"

	"interview-sync/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := postgres.Migrate(pg.DB); err != nil {
			return err
		}
		cmd.Println("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		pg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := postgres.MigrateDown(pg.DB, steps); err != nil {
			return err
		}
		cmd.Printf("rolled back %d migration(s)\n", steps)
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pg.Close()

		version, dirty, err := postgres.MigrationVersion(pg.DB)
		if err != nil {
			return err
		}
		cmd.Printf("version: %d dirty: %t\n", version, dirty)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
