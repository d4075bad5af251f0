package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var pruneDryRun bool

// pruneCmd applies the configured retention policy.
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy to the backup directory",
	Long: `Prune deletes snapshots the configured retention policy no longer
keeps: a count cap, an age cap, a total-size cap, or smart tiered retention.
A zero cap means unlimited. With --dry-run the doomed snapshots are reported
but nothing is deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		printer := newPrinter()

		result, err := svc.Prune(context.Background(), pruneDryRun)
		if err != nil {
			return err
		}

		for _, path := range result.DeletedPaths {
			if pruneDryRun {
				printer.Info("Would delete: %s", path)
			} else {
				printer.Info("Deleted: %s", path)
			}
		}
		for _, e := range result.Errors {
			printer.Warning("%s", e)
		}
		printer.Success("%d processed, %d deleted, %d kept", result.Processed, result.Deleted, result.Kept)
		return nil
	},
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "report what would be deleted without deleting")
	rootCmd.AddCommand(pruneCmd)
}
