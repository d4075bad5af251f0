package backup

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"dirvault/internal/logging"
)

// Service is the external surface of the backup subsystem. It is constructed
// once with injected configuration and owns the operation serializer: at most
// one backup-or-restore operation is in flight per process at any time.
// Callers observe completion order matching call order into the lock.
//
// There is no cross-process locking; concurrent processes targeting the same
// backup directory may race.
type Service struct {
	opts        *Options
	archiver    *ArchiveBuilder
	catalog     *Catalog
	validator   *Validator
	retention   *RetentionEnforcer
	coordinator *RestoreCoordinator
	events      *EventRecorder
	logger      *logging.Logger

	// mu serializes CreateBackup and RestoreBackup in their entirety. The
	// coordinator's nested safety-backup and rollback calls run under the
	// already-held lock through lock-free internal entry points.
	mu sync.Mutex
}

// NewService validates the options, applies defaults, and wires the
// components.
func NewService(opts *Options, logger *logging.Logger) (*Service, error) {
	if opts == nil {
		return nil, NewConfigurationError("backup options are required", nil)
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	compression := NewCompressionManager()
	archiver := NewArchiveBuilder(compression, logger)
	catalog := NewCatalog(opts.BackupDir, opts.NameLayout, logger)
	validator := NewValidator(compression, logger)

	return &Service{
		opts:        opts,
		archiver:    archiver,
		catalog:     catalog,
		validator:   validator,
		retention:   NewRetentionEnforcer(catalog, logger),
		coordinator: NewRestoreCoordinator(opts, archiver, validator, logger),
		events:      NewEventRecorder(opts.Events, logger),
		logger:      logger,
	}, nil
}

// Options returns the service configuration. The returned value must be
// treated as read-only.
func (s *Service) Options() *Options {
	return s.opts
}

// CreateBackup snapshots the data directory into the backup directory and
// returns the new snapshot's path. The description, if any, is sanitized and
// embedded in the filename.
func (s *Service) CreateBackup(ctx context.Context, description string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	path, err := s.createBackupLocked(ctx, description)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.events.Record("backup.create", path, outcome, err, time.Since(start))
	return path, err
}

func (s *Service) createBackupLocked(ctx context.Context, description string) (string, error) {
	if !s.opts.Enabled {
		return "", NewConfigurationError("backups are disabled", nil)
	}
	if _, err := os.Stat(s.opts.DataDir); err != nil {
		if os.IsNotExist(err) {
			return "", NewSourceMissingError(fmt.Sprintf("data directory does not exist: %s", s.opts.DataDir), err)
		}
		return "", NewIOError("failed to stat data directory", err)
	}

	// The backup directory is created lazily on first use.
	if err := os.MkdirAll(s.opts.BackupDir, 0755); err != nil {
		return "", NewConfigurationError("failed to create backup directory", err)
	}

	if s.opts.MinFreeDiskMB > 0 {
		free, err := freeDiskSpace(s.opts.BackupDir)
		if err != nil {
			s.logger.Warnf("Could not determine free disk space for %s: %v", s.opts.BackupDir, err)
		} else if free < uint64(s.opts.MinFreeDiskMB)*1024*1024 {
			return "", NewIOError(fmt.Sprintf("insufficient free disk space: %d bytes free, %d MB required",
				free, s.opts.MinFreeDiskMB), nil)
		}
	}

	destPath, err := s.newSnapshotPath(time.Now(), description)
	if err != nil {
		return "", err
	}

	s.logger.Infof("Creating backup: %s", destPath)
	path, err := s.archiver.Build(ctx, s.opts.DataDir, destPath, s.opts.Compression)
	if err != nil {
		return "", err
	}

	if s.opts.ValidateAfterCreate {
		if vr := s.validator.Validate(path); !vr.Valid {
			if rmErr := removeArtifact(path); rmErr != nil {
				s.logger.Warnf("Failed to remove invalid snapshot %s: %v", path, rmErr)
			}
			return "", NewCorruptionError(
				fmt.Sprintf("freshly created snapshot failed validation: %s", strings.Join(vr.Errors, "; ")), nil)
		}
	}

	// Retention is auxiliary bookkeeping: an error here never invalidates the
	// snapshot that was just produced.
	if _, err := s.retention.Prune(ctx, s.opts.Retention, false); err != nil {
		s.logger.Errorf("Retention pruning after backup failed: %v", err)
	}

	return path, nil
}

// RestoreBackup restores the data directory from the snapshot at path. See
// RestoreCoordinator.Restore for the result contract.
func (s *Service) RestoreBackup(ctx context.Context, path string, validateBeforeRestore bool) (*RestoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result, err := s.coordinator.Restore(ctx, path, validateBeforeRestore)

	outcome := "failure"
	if result != nil {
		outcome = string(result.Outcome)
	}
	s.events.Record("backup.restore", path, outcome, err, time.Since(start))
	return result, err
}

// GetAvailableBackups lists all snapshots, newest first. An absent backup
// directory yields an empty list.
func (s *Service) GetAvailableBackups() ([]*Snapshot, error) {
	return s.catalog.List()
}

// ValidateBackup inspects the snapshot at path for structural soundness.
func (s *Service) ValidateBackup(path string) *ValidationResult {
	return s.validator.Validate(path)
}

// DeleteBackup removes the snapshot at path. Deleting an absent snapshot is
// not an error.
func (s *Service) DeleteBackup(path string) error {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return NewIOError(fmt.Sprintf("failed to delete snapshot %s", path), err)
	}
	s.logger.Infof("Deleted backup: %s", path)
	return nil
}

// Prune applies the configured retention policy outside the create path, for
// on-demand cleanup.
func (s *Service) Prune(ctx context.Context, dryRun bool) (*PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retention.Prune(ctx, s.opts.Retention, dryRun)
}

// GetBackupDirectorySize returns the recursive byte size of the backup
// directory, 0 on any read error.
func (s *Service) GetBackupDirectorySize() int64 {
	size, err := dirSize(s.opts.BackupDir)
	if err != nil {
		return 0
	}
	return size
}

// newSnapshotPath builds the destination path for a snapshot taken at t.
func (s *Service) newSnapshotPath(t time.Time, description string) (string, error) {
	ext := FolderBackupExtension
	if s.opts.Compression.Enabled {
		codec, err := s.archiver.compression.Codec(s.opts.Compression.Algorithm)
		if err != nil {
			return "", err
		}
		ext = codec.Extension()
	}
	return allocateSnapshotPath(s.opts.BackupDir, s.opts.NameLayout, t, description, ext)
}
