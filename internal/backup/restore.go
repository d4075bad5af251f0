package backup

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"dirvault/internal/logging"
)

// restoreState tracks where a restore attempt is in its lifecycle. States are
// internal; callers observe only the terminal RestoreResult.
type restoreState string

const (
	stateIdle         restoreState = "idle"
	stateValidating   restoreState = "validating"
	stateSafetyBackup restoreState = "safety_backup_created"
	stateClearing     restoreState = "clearing"
	stateExtracting   restoreState = "extracting"
	stateDone         restoreState = "done"
	stateRollingBack  restoreState = "rolling_back"
)

// RestoreCoordinator orchestrates a restore: validate, take a pre-restore
// safety snapshot, clear the live directory, extract the chosen snapshot, and
// roll back to the safety snapshot if extraction fails.
//
// The coordinator holds no lock of its own; the Service serializes calls into
// it. Its internal safety-backup and rollback paths re-enter the restore logic
// directly, never through the locked public surface.
type RestoreCoordinator struct {
	opts      *Options
	archiver  *ArchiveBuilder
	validator *Validator
	logger    *logging.Logger
}

// NewRestoreCoordinator creates a restore coordinator.
func NewRestoreCoordinator(opts *Options, archiver *ArchiveBuilder, validator *Validator, logger *logging.Logger) *RestoreCoordinator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &RestoreCoordinator{
		opts:      opts,
		archiver:  archiver,
		validator: validator,
		logger:    logger,
	}
}

// Restore drives the restore state machine for the snapshot at snapshotPath.
//
// On success the result's Outcome is OutcomeSuccess and the error is nil. When
// the requested restore fails but the rollback succeeds, the Outcome is
// OutcomeRestoredSafety and the returned error is the original failure. When
// the rollback also fails, the Outcome is OutcomeFatal and the error is a
// FatalInconsistentError carrying both failures. A pre-mutation abort
// (validation rejection, missing snapshot, safety-backup failure) returns a
// nil result and an error; the live directory was not touched.
func (rc *RestoreCoordinator) Restore(ctx context.Context, snapshotPath string, validateFirst bool) (*RestoreResult, error) {
	start := time.Now()
	state := stateIdle

	if _, err := os.Lstat(snapshotPath); err != nil {
		if os.IsNotExist(err) {
			return nil, NewSourceMissingError(fmt.Sprintf("snapshot does not exist: %s", snapshotPath), err)
		}
		return nil, NewIOError("failed to stat snapshot", err)
	}

	if validateFirst {
		state = stateValidating
		rc.logger.Debugf("Restore state: %s", state)
		if vr := rc.validator.Validate(snapshotPath); !vr.Valid {
			return nil, NewValidationRejectedError(
				fmt.Sprintf("snapshot failed pre-restore validation: %s", strings.Join(vr.Errors, "; ")), nil)
		}
	}

	var safetyPath string
	if rc.opts.SafetyBackup {
		var err error
		safetyPath, err = rc.createSafetyBackup(ctx)
		if err != nil {
			// Nothing was mutated; the restore simply never started.
			return nil, err
		}
		state = stateSafetyBackup
		rc.logger.Infof("Safety backup created: %s (state: %s)", safetyPath, state)
	}

	state = stateClearing
	rc.logger.Debugf("Restore state: %s", state)
	if err := clearDir(rc.opts.DataDir); err != nil {
		return rc.rollback(ctx, safetyPath, snapshotPath, NewIOError("failed to clear data directory", err), start)
	}

	state = stateExtracting
	rc.logger.Debugf("Restore state: %s", state)
	if err := rc.restoreInto(ctx, snapshotPath, rc.opts.DataDir); err != nil {
		return rc.rollback(ctx, safetyPath, snapshotPath, err, start)
	}

	state = stateDone
	rc.logger.Infof("Restore completed: %s (state: %s)", snapshotPath, state)
	return &RestoreResult{
		Outcome:          OutcomeSuccess,
		SnapshotPath:     snapshotPath,
		SafetyBackupPath: safetyPath,
		Duration:         time.Since(start),
	}, nil
}

// createSafetyBackup snapshots the current live data directory with the
// reserved safety marker so it stays catalog-visible but recognizable.
func (rc *RestoreCoordinator) createSafetyBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(rc.opts.BackupDir, 0755); err != nil {
		return "", NewConfigurationError("failed to create backup directory for safety backup", err)
	}
	ext := FolderBackupExtension
	if rc.opts.Compression.Enabled {
		// Extension mirrors the codec; resolution cannot fail for a validated
		// configuration.
		if codec, err := rc.archiver.compression.Codec(rc.opts.Compression.Algorithm); err == nil {
			ext = codec.Extension()
		}
	}
	destPath, err := allocateSnapshotPath(rc.opts.BackupDir, rc.opts.NameLayout, time.Now(), SafetyBackupMarker, ext)
	if err != nil {
		return "", err
	}
	return rc.archiver.Build(ctx, rc.opts.DataDir, destPath, rc.opts.Compression)
}

// rollback re-enters the restore path targeting the just-created safety
// backup, with validation disabled: the snapshot was produced moments ago and
// is trusted.
func (rc *RestoreCoordinator) rollback(ctx context.Context, safetyPath, snapshotPath string, original error, start time.Time) (*RestoreResult, error) {
	state := stateRollingBack
	rc.logger.Errorf("Restore of %s failed, rolling back (state: %s): %v", snapshotPath, state, original)

	if safetyPath == "" {
		err := NewFatalInconsistentError(original,
			NewConfigurationError("no safety backup available for rollback", nil))
		result := &RestoreResult{
			Outcome:      OutcomeFatal,
			SnapshotPath: snapshotPath,
			Err:          original,
			RollbackErr:  err.Rollback,
			Duration:     time.Since(start),
		}
		return result, err
	}

	rollbackErr := func() error {
		if err := clearDir(rc.opts.DataDir); err != nil {
			return NewIOError("failed to clear data directory during rollback", err)
		}
		return rc.restoreInto(ctx, safetyPath, rc.opts.DataDir)
	}()

	if rollbackErr != nil {
		err := NewFatalInconsistentError(original, rollbackErr)
		rc.logger.Errorf("Rollback failed, data directory state is unknown: %v", err)
		return &RestoreResult{
			Outcome:          OutcomeFatal,
			SnapshotPath:     snapshotPath,
			SafetyBackupPath: safetyPath,
			Err:              original,
			RollbackErr:      rollbackErr,
			Duration:         time.Since(start),
		}, err
	}

	rc.logger.Warnf("Rollback succeeded: data directory restored from safety backup %s", safetyPath)
	return &RestoreResult{
		Outcome:          OutcomeRestoredSafety,
		SnapshotPath:     snapshotPath,
		SafetyBackupPath: safetyPath,
		Err:              original,
		Duration:         time.Since(start),
	}, original
}

// restoreInto places a snapshot's contents into destDir: archives are
// extracted, folder snapshots copied.
func (rc *RestoreCoordinator) restoreInto(ctx context.Context, snapshotPath, destDir string) error {
	info, err := os.Stat(snapshotPath)
	if err != nil {
		return NewIOError("failed to stat snapshot during restore", err)
	}
	if info.IsDir() {
		_, _, err := copyTree(ctx, snapshotPath, destDir)
		if err != nil {
			if ctx.Err() != nil && err == ctx.Err() {
				return err
			}
			return NewIOError("failed to copy folder snapshot into data directory", err)
		}
		return nil
	}
	return rc.archiver.Extract(ctx, snapshotPath, destDir)
}
