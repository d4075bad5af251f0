package cmd

import (
	"github.com/spf13/cobra"
)

// deleteCmd removes a snapshot. Deleting an absent snapshot is not an error.
var deleteCmd = &cobra.Command{
	Use:   "delete <snapshot-path>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		printer := newPrinter()

		if err := svc.DeleteBackup(args[0]); err != nil {
			printer.Failure("Delete failed: %v", err)
			return err
		}
		printer.Success("Deleted: %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
