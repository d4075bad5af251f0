package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// listCmd prints the available snapshots, newest first.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		printer := newPrinter()

		snapshots, err := svc.GetAvailableBackups()
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			printer.Info("No snapshots found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tSIZE\tFORMAT\tDESCRIPTION\tFILE")
		for _, s := range snapshots {
			format := "folder"
			if s.IsCompressed {
				format = "archive"
			}
			description := s.Description
			if description == "" {
				description = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				s.CreatedAt.Format(time.RFC3339), formatBytes(s.SizeBytes), format, description, s.FileName)
		}
		w.Flush()

		printer.Info("\n%d snapshots, %s total", len(snapshots), formatBytes(svc.GetBackupDirectorySize()))
		return nil
	},
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func init() {
	rootCmd.AddCommand(listCmd)
}
