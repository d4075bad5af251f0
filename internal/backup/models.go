package backup

import (
	"strings"
	"time"
)

// SnapshotFormatVersion is the on-disk layout version encoded in Snapshot records.
const SnapshotFormatVersion = 1

// SafetyBackupMarker is the reserved description given to the safety snapshot
// taken immediately before a restore. It keeps the snapshot catalog-visible
// while remaining recognizable as an internal artifact.
const SafetyBackupMarker = "pre-restore-safety"

// DescriptionSeparator separates the timestamp from the optional description in
// a snapshot filename. The split is purely textual with no escaping: a
// description containing the separator parses back as a multi-segment
// description, which is accepted as-is.
const DescriptionSeparator = "_"

// FolderBackupExtension marks an uncompressed folder-copy snapshot.
const FolderBackupExtension = ".bak"

// Snapshot is a derived record describing one backup discovered in the backup
// directory. It is reconstructed by scanning; the filename is the only
// persisted metadata carrier.
type Snapshot struct {
	Path          string    `json:"path"`
	FileName      string    `json:"file_name"`
	CreatedAt     time.Time `json:"created_at"`
	SizeBytes     int64     `json:"size_bytes"`
	Description   string    `json:"description,omitempty"` // empty means none
	IsCompressed  bool      `json:"is_compressed"`
	FormatVersion int       `json:"format_version"`
}

// IsSafetyBackup reports whether this snapshot was created as a pre-restore
// safety artifact.
func (s *Snapshot) IsSafetyBackup() bool {
	return strings.HasPrefix(s.Description, SafetyBackupMarker)
}

// ValidationResult reports the outcome of a structural snapshot inspection.
type ValidationResult struct {
	Valid     bool            `json:"valid"`
	Errors    []string        `json:"errors,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Metadata  ArchiveMetadata `json:"metadata"`
	Path      string          `json:"path"`
	CheckedAt time.Time       `json:"checked_at"`
}

// ArchiveMetadata carries metadata gathered while validating a snapshot.
type ArchiveMetadata struct {
	EntryCount       int       `json:"entry_count"`
	CompressedSize   int64     `json:"compressed_size"`
	UncompressedSize int64     `json:"uncompressed_size"`
	ModifiedAt       time.Time `json:"modified_at"`
}

// RestoreOutcome enumerates the terminal states of a restore attempt. The
// rollback branch is a first-class state, not an exception handler side effect.
type RestoreOutcome string

const (
	// OutcomeSuccess means the requested snapshot was fully extracted.
	OutcomeSuccess RestoreOutcome = "success"
	// OutcomeRestoredSafety means the requested restore failed but the live
	// data directory was returned to its pre-restore state.
	OutcomeRestoredSafety RestoreOutcome = "restored_safety"
	// OutcomeFatal means the rollback itself failed; the live data directory's
	// state is unknown and requires manual recovery.
	OutcomeFatal RestoreOutcome = "fatal"
)

// RestoreResult reports how a restore attempt ended.
type RestoreResult struct {
	Outcome          RestoreOutcome `json:"outcome"`
	SnapshotPath     string         `json:"snapshot_path"`
	SafetyBackupPath string         `json:"safety_backup_path,omitempty"`
	Err              error          `json:"-"`
	RollbackErr      error          `json:"-"`
	Duration         time.Duration  `json:"duration"`
}

// PruneResult reports the outcome of a retention pass.
type PruneResult struct {
	Processed    int           `json:"processed"`
	Deleted      int           `json:"deleted"`
	Kept         int           `json:"kept"`
	DeletedPaths []string      `json:"deleted_paths,omitempty"`
	Errors       []string      `json:"errors,omitempty"`
	DryRun       bool          `json:"dry_run"`
	Duration     time.Duration `json:"duration"`
}

// sanitizeDescription reduces a free-text description to the characters that
// survive embedding in a filename. Runs of disallowed characters collapse to a
// single hyphen; the separator character itself is disallowed so the textual
// split stays unambiguous for single-segment descriptions.
func sanitizeDescription(description string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range description {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastHyphen = r == '-'
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
