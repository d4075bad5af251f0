package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd inspects a snapshot for structural soundness.
var validateCmd = &cobra.Command{
	Use:   "validate <snapshot-path>",
	Short: "Check a snapshot for structural soundness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		printer := newPrinter()

		result := svc.ValidateBackup(args[0])
		for _, e := range result.Errors {
			printer.Failure("%s", e)
		}
		for _, w := range result.Warnings {
			printer.Warning("%s", w)
		}

		if result.Valid {
			printer.Success("Snapshot is valid: %s", printer.Accent(args[0]))
			printer.Info("Entries: %d, compressed: %s, uncompressed: %s",
				result.Metadata.EntryCount,
				formatBytes(result.Metadata.CompressedSize),
				formatBytes(result.Metadata.UncompressedSize))
			return nil
		}
		return fmt.Errorf("snapshot failed validation: %s", args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
