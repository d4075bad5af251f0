package backup

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions("/data", "/backups")

	assert.True(t, opts.Enabled)
	assert.True(t, opts.SafetyBackup)
	assert.True(t, opts.ValidateAfterCreate)
	assert.True(t, opts.Compression.Enabled)
	assert.Equal(t, CompressionTypeZstd, opts.Compression.Algorithm)
	assert.Equal(t, CompressionLevelOptimal, opts.Compression.Level)
	assert.Equal(t, DefaultNameLayout, opts.NameLayout)
	assert.NoError(t, opts.Validate())
}

func TestOptions_SetDefaults_LeavesBooleansAlone(t *testing.T) {
	opts := &Options{DataDir: "/data", BackupDir: "/backups"}
	opts.SetDefaults()

	// SetDefaults never flips booleans; an explicit false from a config file
	// must survive.
	assert.False(t, opts.Enabled)
	assert.False(t, opts.SafetyBackup)
	assert.Equal(t, CompressionTypeZstd, opts.Compression.Algorithm)
}

func TestOptions_SetDefaults_SmartTiers(t *testing.T) {
	opts := &Options{DataDir: "/data", BackupDir: "/backups"}
	opts.Retention.Smart = true
	opts.SetDefaults()

	assert.Equal(t, 7, opts.Retention.KeepDaily)
	assert.Equal(t, 4, opts.Retention.KeepWeekly)
	assert.Equal(t, 12, opts.Retention.KeepMonthly)

	// Explicit tier values survive.
	opts2 := &Options{DataDir: "/data", BackupDir: "/backups"}
	opts2.Retention.Smart = true
	opts2.Retention.KeepDaily = 3
	opts2.SetDefaults()
	assert.Equal(t, 3, opts2.Retention.KeepDaily)
}

func TestOptions_Validate(t *testing.T) {
	valid := func() *Options { return DefaultOptions("/data", "/backups") }

	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{"Valid defaults", func(o *Options) {}, ""},
		{"Missing data dir", func(o *Options) { o.DataDir = "" }, "data directory is required"},
		{"Missing backup dir", func(o *Options) { o.BackupDir = "" }, "backup directory is required"},
		{"Same directories", func(o *Options) { o.BackupDir = o.DataDir }, "must differ"},
		{"Bad algorithm", func(o *Options) { o.Compression.Algorithm = "snappy" }, "unsupported compression algorithm"},
		{"Bad level", func(o *Options) { o.Compression.Level = "turbo" }, "unsupported compression level"},
		{"Negative max backups", func(o *Options) { o.Retention.MaxBackups = -1 }, "must not be negative"},
		{"Negative max age", func(o *Options) { o.Retention.MaxAgeDays = -1 }, "must not be negative"},
		{"Negative size cap", func(o *Options) { o.Retention.MaxTotalSizeMB = -1 }, "must not be negative"},
		{"Negative min free disk", func(o *Options) { o.MinFreeDiskMB = -1 }, "must not be negative"},
		{"Bad algorithm ignored when compression off", func(o *Options) {
			o.Compression.Enabled = false
			o.Compression.Algorithm = "snappy"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid()
			tt.mutate(opts)
			err := opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, IsKind(err, KindConfiguration))
			}
		})
	}
}

func TestOptions_LoadFromEnvironment(t *testing.T) {
	t.Setenv("DIRVAULT_DATA_DIR", "/env/data")
	t.Setenv("DIRVAULT_BACKUP_DIR", "/env/backups")
	t.Setenv("DIRVAULT_COMPRESSION", "false")
	t.Setenv("DIRVAULT_COMPRESSION_ALGORITHM", "gzip")
	t.Setenv("DIRVAULT_MAX_BACKUPS", "12")
	t.Setenv("DIRVAULT_MAX_AGE_DAYS", "30")
	t.Setenv("DIRVAULT_MIN_FREE_DISK_MB", "256")

	opts := DefaultOptions("/data", "/backups")
	opts.LoadFromEnvironment()

	assert.Equal(t, "/env/data", opts.DataDir)
	assert.Equal(t, "/env/backups", opts.BackupDir)
	assert.False(t, opts.Compression.Enabled)
	assert.Equal(t, CompressionTypeGzip, opts.Compression.Algorithm)
	assert.Equal(t, 12, opts.Retention.MaxBackups)
	assert.Equal(t, 30, opts.Retention.MaxAgeDays)
	assert.Equal(t, int64(256), opts.MinFreeDiskMB)
}

func TestRetentionOptions_Derived(t *testing.T) {
	ro := RetentionOptions{}
	assert.False(t, ro.configured())

	ro.MaxAgeDays = 7
	assert.True(t, ro.configured())
	assert.Equal(t, 7*24*time.Hour, ro.MaxAge())

	ro = RetentionOptions{MaxTotalSizeMB: 2}
	assert.True(t, ro.configured())
	assert.Equal(t, int64(2*1024*1024), ro.MaxTotalSizeBytes())

	ro = RetentionOptions{Smart: true}
	assert.True(t, ro.configured())
}

func TestConfigLoader_MissingFileUsesDefaults(t *testing.T) {
	loader := NewConfigLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("DIRVAULT_DATA_DIR", "/env/data")
	t.Setenv("DIRVAULT_BACKUP_DIR", "/env/backups")

	opts, err := loader.LoadOptions()
	require.NoError(t, err)
	assert.True(t, opts.Enabled)
	assert.True(t, opts.Compression.Enabled)
	assert.Equal(t, "/env/data", opts.DataDir)
}
