package backup

import (
	"os"
	"strconv"
	"time"
)

// DefaultNameLayout is the time layout for the timestamp part of snapshot
// filenames. It deliberately contains no DescriptionSeparator so the textual
// description split stays well-defined.
const DefaultNameLayout = "20060102-150405"

// Options is the immutable-per-run configuration for the backup subsystem.
// It is constructed once with injected directories and passed by reference;
// there is no process-wide singleton.
type Options struct {
	Enabled   bool   `yaml:"enabled"`
	DataDir   string `yaml:"data_dir"`
	BackupDir string `yaml:"backup_dir"`

	Compression CompressionOptions `yaml:"compression"`
	Retention   RetentionOptions   `yaml:"retention"`
	Events      EventOptions       `yaml:"events"`

	// NameLayout is the time layout used for the timestamp part of snapshot
	// filenames.
	NameLayout string `yaml:"name_layout"`

	// SafetyBackup takes a snapshot of the live data directory before every
	// restore so a failed restore can roll back.
	SafetyBackup bool `yaml:"safety_backup"`

	// ValidateAfterCreate runs the structural validator on every snapshot
	// immediately after creation and discards snapshots that fail it.
	ValidateAfterCreate bool `yaml:"validate_after_create"`

	// MinFreeDiskMB aborts backup creation when the backup directory's
	// filesystem has less free space than this. Zero disables the check.
	MinFreeDiskMB int64 `yaml:"min_free_disk_mb"`
}

// CompressionOptions selects the snapshot format.
type CompressionOptions struct {
	// Enabled selects compressed tar archives; disabled means verbatim
	// directory copies.
	Enabled   bool             `yaml:"enabled"`
	Algorithm CompressionType  `yaml:"algorithm"`
	Level     CompressionLevel `yaml:"level"`
}

// RetentionOptions configures which snapshots survive pruning. A zero cap
// means unlimited, never "delete all".
type RetentionOptions struct {
	MaxBackups     int   `yaml:"max_backups"`
	MaxAgeDays     int   `yaml:"max_age_days"`
	MaxTotalSizeMB int64 `yaml:"max_total_size_mb"`

	// Smart enables tiered retention: the newest snapshot per day, week, and
	// month bucket survives within the configured horizons.
	Smart       bool `yaml:"smart"`
	KeepDaily   int  `yaml:"keep_daily"`
	KeepWeekly  int  `yaml:"keep_weekly"`
	KeepMonthly int  `yaml:"keep_monthly"`
}

// configured reports whether any cap or tier engages the enforcer.
func (ro *RetentionOptions) configured() bool {
	return ro.MaxBackups > 0 || ro.MaxAgeDays > 0 || ro.MaxTotalSizeMB > 0 || ro.Smart
}

// MaxAge returns the age cap as a duration, zero when unconfigured.
func (ro *RetentionOptions) MaxAge() time.Duration {
	return time.Duration(ro.MaxAgeDays) * 24 * time.Hour
}

// MaxTotalSizeBytes returns the size cap in bytes, zero when unconfigured.
func (ro *RetentionOptions) MaxTotalSizeBytes() int64 {
	return ro.MaxTotalSizeMB * 1024 * 1024
}

// DefaultOptions returns Options with defaults applied for the given
// directories.
func DefaultOptions(dataDir, backupDir string) *Options {
	opts := &Options{
		Enabled:             true,
		DataDir:             dataDir,
		BackupDir:           backupDir,
		SafetyBackup:        true,
		ValidateAfterCreate: true,
	}
	opts.Compression.Enabled = true
	opts.SetDefaults()
	return opts
}

// SetDefaults fills unset fields with default values. Boolean fields are left
// alone so an explicit false in a config file survives; loaders that want the
// recommended booleans start from DefaultOptions before unmarshaling.
func (o *Options) SetDefaults() {
	if o.NameLayout == "" {
		o.NameLayout = DefaultNameLayout
	}
	if o.Compression.Algorithm == "" {
		o.Compression.Algorithm = CompressionTypeZstd
	}
	if o.Compression.Level == "" {
		o.Compression.Level = CompressionLevelOptimal
	}
	if o.Retention.Smart {
		if o.Retention.KeepDaily == 0 {
			o.Retention.KeepDaily = 7
		}
		if o.Retention.KeepWeekly == 0 {
			o.Retention.KeepWeekly = 4
		}
		if o.Retention.KeepMonthly == 0 {
			o.Retention.KeepMonthly = 12
		}
	}
	o.Events.SetDefaults()
}

// Validate checks the configuration for internal consistency.
func (o *Options) Validate() error {
	if o.DataDir == "" {
		return NewConfigurationError("data directory is required", nil)
	}
	if o.BackupDir == "" {
		return NewConfigurationError("backup directory is required", nil)
	}
	if o.DataDir == o.BackupDir {
		return NewConfigurationError("data directory and backup directory must differ", nil)
	}
	if o.Compression.Enabled {
		if !IsSupportedAlgorithm(o.Compression.Algorithm) {
			return NewConfigurationError("unsupported compression algorithm: "+string(o.Compression.Algorithm), nil)
		}
		switch o.Compression.Level {
		case CompressionLevelNone, CompressionLevelFastest, CompressionLevelOptimal, CompressionLevelSmallest:
		default:
			return NewConfigurationError("unsupported compression level: "+string(o.Compression.Level), nil)
		}
	}
	if o.Retention.MaxBackups < 0 {
		return NewConfigurationError("retention max_backups must not be negative", nil)
	}
	if o.Retention.MaxAgeDays < 0 {
		return NewConfigurationError("retention max_age_days must not be negative", nil)
	}
	if o.Retention.MaxTotalSizeMB < 0 {
		return NewConfigurationError("retention max_total_size_mb must not be negative", nil)
	}
	if o.MinFreeDiskMB < 0 {
		return NewConfigurationError("min_free_disk_mb must not be negative", nil)
	}
	if _, err := time.Parse(o.NameLayout, time.Now().Format(o.NameLayout)); err != nil {
		return NewConfigurationError("name_layout is not a valid time layout", err)
	}
	return nil
}

// LoadFromEnvironment overrides options from DIRVAULT_* environment variables.
func (o *Options) LoadFromEnvironment() {
	if v := os.Getenv("DIRVAULT_DATA_DIR"); v != "" {
		o.DataDir = v
	}
	if v := os.Getenv("DIRVAULT_BACKUP_DIR"); v != "" {
		o.BackupDir = v
	}
	if v := os.Getenv("DIRVAULT_COMPRESSION"); v != "" {
		o.Compression.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("DIRVAULT_COMPRESSION_ALGORITHM"); v != "" {
		o.Compression.Algorithm = CompressionType(v)
	}
	if v := os.Getenv("DIRVAULT_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.Retention.MaxBackups = n
		}
	}
	if v := os.Getenv("DIRVAULT_MAX_AGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.Retention.MaxAgeDays = n
		}
	}
	if v := os.Getenv("DIRVAULT_MAX_TOTAL_SIZE_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			o.Retention.MaxTotalSizeMB = n
		}
	}
	if v := os.Getenv("DIRVAULT_MIN_FREE_DISK_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			o.MinFreeDiskMB = n
		}
	}
}
