package cmd

import (
	"github.com/spf13/cobra"

	"interview-sync/pkg/registry"
)

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List the BPMN task types the service executes",
	Long: `List the activity registry compiled into the service, or validate a
registry file passed with --file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")

		var reg *registry.ActivityRegistry
		var err error
		if path != "" {
			reg, err = registry.LoadRegistry(path)
		} else {
			reg, err = registry.Default()
		}
		if err != nil {
			return err
		}
		if err := reg.Validate(); err != nil {
			return err
		}

		cmd.Printf("registry %s (%d activities)\n", reg.Version, len(reg.Activities))
		for _, a := range reg.Activities {
			cmd.Printf("  %-28s %-26s timeout=%s retries=%d\n", a.TaskType, a.ConfigKey, a.Timeout, a.Retries)
		}
		return nil
	},
}

func init() {
	activitiesCmd.Flags().String("file", "", "registry file to validate instead of the built-in one")
	rootCmd.AddCommand(activitiesCmd)
}
