// Package backup provides point-in-time protection for a directory-based data store.
//
// The package creates recoverable snapshots of a live data directory, restores
// from them with a safety net against partial failure, validates archive
// integrity, and prunes old snapshots under a retention policy. It is designed
// around the following principles:
//
// 1. Safety First: every restore is preceded by an automatic safety snapshot
// 2. Reliability: multi-step operations leave the system in a well-defined state
// even when a step fails midway
// 3. Observability: every backup and restore emits a structured audit event
//
// Core Components:
//
// - Service: orchestrates backup creation, restore, validation, and pruning
// - ArchiveBuilder: produces snapshots as compressed archives or verbatim copies
// - Catalog: enumerates snapshot files and derives metadata from filenames
// - Validator: inspects a snapshot for structural soundness without restoring it
// - RetentionEnforcer: decides which snapshots to delete under a policy
// - RestoreCoordinator: drives the restore state machine with rollback support
//
// Snapshots are flat files (or .bak directory trees) in a single backup
// directory; the filename is the only persisted metadata carrier. There is no
// cross-process locking: concurrent processes targeting the same backup
// directory may race.
//
// Example usage:
//
//	opts := backup.DefaultOptions(dataDir, backupDir)
//	svc, err := backup.NewService(opts, logger)
//	if err != nil {
//		return err
//	}
//
//	path, err := svc.CreateBackup(ctx, "before upgrade")
//	if err != nil {
//		return fmt.Errorf("backup creation failed: %w", err)
//	}
//
//	result, err := svc.RestoreBackup(ctx, path, true)
//	if err != nil {
//		if result != nil && result.Outcome == backup.OutcomeRestoredSafety {
//			// the requested restore failed, but the data directory was
//			// returned to its pre-restore state
//		}
//		return err
//	}
package backup
