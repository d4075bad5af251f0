package backup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dirvault/internal/logging"
)

// Catalog enumerates snapshot files in the backup directory and derives
// metadata from their filenames. Nothing is persisted beyond the files
// themselves.
type Catalog struct {
	backupDir  string
	nameLayout string
	logger     *logging.Logger
}

// NewCatalog creates a catalog over the given backup directory.
func NewCatalog(backupDir, nameLayout string, logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if nameLayout == "" {
		nameLayout = DefaultNameLayout
	}
	return &Catalog{
		backupDir:  backupDir,
		nameLayout: nameLayout,
		logger:     logger,
	}
}

// List returns all snapshots in the backup directory, newest first. Ties on
// creation time break by filename, descending, so the order is stable. An
// absent backup directory yields an empty list, not an error.
func (c *Catalog) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(c.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Snapshot{}, nil
		}
		return nil, NewIOError("failed to read backup directory", err)
	}

	snapshots := make([]*Snapshot, 0, len(entries))
	for _, entry := range entries {
		snapshot, ok := c.snapshotFromEntry(entry)
		if !ok {
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
		}
		return snapshots[i].FileName > snapshots[j].FileName
	})

	return snapshots, nil
}

// snapshotFromEntry derives a Snapshot from a directory entry, or reports that
// the entry is not a recognized snapshot.
func (c *Catalog) snapshotFromEntry(entry os.DirEntry) (*Snapshot, bool) {
	name := entry.Name()
	path := filepath.Join(c.backupDir, name)

	var base string
	var compressed bool
	switch {
	case entry.IsDir() && strings.HasSuffix(name, FolderBackupExtension):
		base = strings.TrimSuffix(name, FolderBackupExtension)
		compressed = false
	case !entry.IsDir() && IsArchivePath(name):
		base = trimArchiveExtension(name)
		compressed = true
	default:
		return nil, false
	}

	info, err := entry.Info()
	if err != nil {
		c.logger.Warnf("Skipping unreadable backup entry %s: %v", name, err)
		return nil, false
	}

	snapshot := &Snapshot{
		Path:          path,
		FileName:      name,
		SizeBytes:     info.Size(),
		IsCompressed:  compressed,
		FormatVersion: SnapshotFormatVersion,
	}
	if !compressed {
		if size, err := dirSize(path); err == nil {
			snapshot.SizeBytes = size
		}
	}

	// The filename encodes "<timestamp>[_<description>]". The split on the
	// first separator is purely textual with no escaping. A malformed name is
	// still listed; it just carries no description and falls back to the file
	// modification time.
	stamp, description := base, ""
	if idx := strings.Index(base, DescriptionSeparator); idx >= 0 {
		stamp, description = base[:idx], base[idx+1:]
	}
	if created, err := time.ParseInLocation(c.nameLayout, stamp, time.Local); err == nil {
		snapshot.CreatedAt = created
		snapshot.Description = description
	} else {
		snapshot.CreatedAt = info.ModTime()
	}

	return snapshot, true
}

func trimArchiveExtension(name string) string {
	for _, ext := range []string{".tar.gz", ".tar.zst", ".tar.lz4"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// snapshotBaseName builds the filename stem for a snapshot taken at t with an
// optional description.
func snapshotBaseName(layout string, t time.Time, description string) string {
	name := t.Format(layout)
	if d := sanitizeDescription(description); d != "" {
		name += DescriptionSeparator + d
	}
	return name
}

// allocateSnapshotPath picks a snapshot path whose timestamp is strictly
// newer than every stamped entry already in the directory. Probing only for a
// free name is not enough: right after a retention pass frees the oldest
// name, a same-second create would reuse it and the next retention pass would
// delete the brand-new snapshot as the oldest entry. Timestamp layouts
// usually have second granularity, so back-to-back snapshots additionally
// bump forward one second at a time until the name is free.
func allocateSnapshotPath(dir, layout string, t time.Time, description, ext string) (string, error) {
	if newest, ok := newestStampedTime(dir, layout); ok && !newest.Before(t.Truncate(time.Second)) {
		t = newest.Add(time.Second)
	}
	for attempt := 0; attempt < 10; attempt++ {
		base := snapshotBaseName(layout, t.Add(time.Duration(attempt)*time.Second), description)
		path := filepath.Join(dir, base+ext)
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
	return "", NewIOError("could not allocate a unique snapshot name in "+dir, nil)
}

// newestStampedTime returns the latest snapshot timestamp encoded in the
// directory's entry names. Entries whose names do not parse are ignored; they
// order by modification time in the catalog and play no part in allocation.
func newestStampedTime(dir, layout string) (time.Time, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, false
	}
	var newest time.Time
	found := false
	for _, entry := range entries {
		name := entry.Name()
		var base string
		switch {
		case entry.IsDir() && strings.HasSuffix(name, FolderBackupExtension):
			base = strings.TrimSuffix(name, FolderBackupExtension)
		case !entry.IsDir() && IsArchivePath(name):
			base = trimArchiveExtension(name)
		default:
			continue
		}
		stamp := base
		if idx := strings.Index(base, DescriptionSeparator); idx >= 0 {
			stamp = base[:idx]
		}
		created, err := time.ParseInLocation(layout, stamp, time.Local)
		if err != nil {
			continue
		}
		if !found || created.After(newest) {
			newest = created
			found = true
		}
	}
	return newest, found
}
