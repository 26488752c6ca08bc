package cmd

import "github.com/spf13/cobra"

// auditCmd groups the offline audit tooling. Subcommands work on exported
// JSON trails rather than the live database, so they can run anywhere.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Work with exported audit trails",
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
