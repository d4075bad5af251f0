package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"dirvault/internal/backup"
)

var skipValidation bool

// restoreCmd restores the data directory from a snapshot.
var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-path>",
	Short: "Restore the data directory from a snapshot",
	Long: `Restore replaces the data directory's contents with the snapshot's.

A safety backup of the current data directory is taken first (unless disabled
in the configuration); if the restore fails midway, the data directory is
rolled back to that safety backup. The safety backup stays on disk after a
successful restore so a revert remains possible.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		printer := newPrinter()

		result, err := svc.RestoreBackup(context.Background(), args[0], !skipValidation)
		switch {
		case err == nil:
			printer.Success("Restore completed: %s", printer.Accent(args[0]))
			if result.SafetyBackupPath != "" {
				printer.Info("Safety backup kept at %s", result.SafetyBackupPath)
			}
			return nil
		case result != nil && result.Outcome == backup.OutcomeRestoredSafety:
			printer.Warning("Restore failed, data directory rolled back to its pre-restore state")
			printer.Info("Safety backup: %s", result.SafetyBackupPath)
			return err
		case result != nil && result.Outcome == backup.OutcomeFatal:
			printer.Failure("Restore failed AND rollback failed: the data directory state is unknown")
			printer.Failure("Manual recovery required. Restore error: %v", result.Err)
			printer.Failure("Rollback error: %v", result.RollbackErr)
			return err
		default:
			printer.Failure("Restore aborted before touching the data directory: %v", err)
			return err
		}
	},
}

func init() {
	restoreCmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "skip pre-restore snapshot validation")
	rootCmd.AddCommand(restoreCmd)
}
