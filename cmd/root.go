package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dirvault/internal/backup"
	"dirvault/internal/display"
	"dirvault/internal/logging"
)

var cfgFile string

// CLI flag variables
var (
	dataDir   string
	backupDir string

	verbose  bool
	quiet    bool
	logFile  string
	jsonLogs bool
	noColor  bool
)

// Version information (set via SetVersionInfo)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dirvault",
	Short: "Point-in-time backups for a directory-based data store",
	Long: `dirvault creates recoverable snapshots of a data directory, restores
from them with a safety net against partial failure, validates archive
integrity, and prunes old snapshots under a retention policy.

Snapshots are flat files in a single backup directory: compressed tar
archives (.tar.zst, .tar.gz, .tar.lz4) or verbatim .bak directory copies.
The filename carries the timestamp and an optional description; no separate
manifest is written.

Examples:
  # Snapshot the data directory with a description
  dirvault create --data-dir=/var/lib/app/data --backup-dir=/var/backups/app "before upgrade"

  # List available snapshots, newest first
  dirvault list --backup-dir=/var/backups/app

  # Restore a snapshot (a safety backup is taken first)
  dirvault restore --data-dir=/var/lib/app/data --backup-dir=/var/backups/app /var/backups/app/20250115-020000.tar.zst`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(v, bt, gc string) {
	version, buildTime, gitCommit = v, bt, gc
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", version, buildTime, gitCommit)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dirvault.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "live data directory to protect")
	rootCmd.PersistentFlags().StringVar(&backupDir, "backup-dir", "", "directory holding snapshots")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("backup_dir", rootCmd.PersistentFlags().Lookup("backup-dir"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("dirvault")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DIRVAULT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the logger from the global flags.
func newLogger() (*logging.Logger, error) {
	level := logging.LogLevelNormal
	if verbose {
		level = logging.LogLevelVerbose
	}
	if quiet {
		level = logging.LogLevelQuiet
	}
	format := "text"
	if jsonLogs {
		format = "json"
	}
	return logging.NewLogger(logging.Config{
		Level:   level,
		Format:  format,
		LogFile: logFile,
	})
}

// newService wires a backup service from the config file plus flag overrides.
func newService() (*backup.Service, *logging.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	loader := backup.NewConfigLoader(viper.ConfigFileUsed())
	opts, err := loader.LoadOptions()
	if err != nil {
		return nil, nil, err
	}
	if dataDir != "" {
		opts.DataDir = dataDir
	}
	if backupDir != "" {
		opts.BackupDir = backupDir
	}

	svc, err := backup.NewService(opts, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, logger, nil
}

func newPrinter() *display.Printer {
	return display.NewPrinter(noColor)
}
