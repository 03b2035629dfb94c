package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"interview-sync/internal/common/logger"
	"interview-sync/internal/reconcile"
	"interview-sync/internal/store/postgres"
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Count rows whose organization is unknown to the caller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID, _ := cmd.Flags().GetString("group")
		if groupID == "" {
			return errors.New("--group is required")
		}
		known, _ := cmd.Flags().GetString("known")

		pg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pg.Close()

		r := reconcile.NewReconciler(postgres.New(pg.DB), logger.NewNoOpLogger())
		s, err := r.Summarize(cmd.Context(), groupID, reconcile.ParseIDs(known))
		if err != nil {
			return err
		}

		cmd.Printf("agents:                   %d\n", s.Agents)
		cmd.Printf("interview guides:         %d\n", s.InterviewGuides)
		cmd.Printf("interview configurations: %d\n", s.InterviewConfigurations)
		cmd.Printf("jobs:                     %d\n", s.Jobs)
		cmd.Printf("applicants:               %d\n", s.Applicants)
		cmd.Printf("total:                    %d\n", s.Total())
		for _, id := range s.DanglingOrganizationIDs {
			cmd.Printf("  dangling organization: %s\n", id)
		}
		return nil
	},
}

func init() {
	orphansCmd.Flags().String("group", "", "group id")
	orphansCmd.Flags().String("known", "", "comma-separated organization ids that still exist")
	rootCmd.AddCommand(orphansCmd)
}
