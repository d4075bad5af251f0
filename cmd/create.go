package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// createCmd snapshots the data directory.
var createCmd = &cobra.Command{
	Use:   "create [description]",
	Short: "Create a snapshot of the data directory",
	Long: `Create snapshots the data directory into the backup directory. The
optional description is sanitized and embedded in the snapshot filename.

After a successful creation the snapshot is validated and the configured
retention policy is applied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		printer := newPrinter()

		description := ""
		if len(args) > 0 {
			description = strings.TrimSpace(args[0])
		}

		path, err := svc.CreateBackup(context.Background(), description)
		if err != nil {
			printer.Failure("Backup failed: %v", err)
			return err
		}

		printer.Success("Backup created: %s", printer.Accent(path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
