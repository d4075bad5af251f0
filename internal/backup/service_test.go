package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_RejectsBadOptions(t *testing.T) {
	logger := testLogger(t)

	_, err := NewService(nil, logger)
	assert.True(t, IsKind(err, KindConfiguration))

	sameDir := t.TempDir()
	_, err = NewService(&Options{DataDir: sameDir, BackupDir: sameDir}, logger)
	assert.True(t, IsKind(err, KindConfiguration))

	opts := DefaultOptions(t.TempDir(), filepath.Join(t.TempDir(), "b"))
	opts.Compression.Algorithm = CompressionType("snappy")
	_, err = NewService(opts, logger)
	assert.True(t, IsKind(err, KindConfiguration))
}

func TestService_CreateBackup_ProducesValidSnapshot(t *testing.T) {
	svc, dataDir, backupDir := testService(t, nil)
	writeTree(t, dataDir, map[string]string{"store.json": `{"k":"v"}`})

	path, err := svc.CreateBackup(context.Background(), "nightly run")
	require.NoError(t, err)
	assert.Equal(t, backupDir, filepath.Dir(path))
	assert.Contains(t, filepath.Base(path), "_nightly-run")

	result := svc.ValidateBackup(path)
	assert.True(t, result.Valid)

	snapshots, err := svc.GetAvailableBackups()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "nightly-run", snapshots[0].Description)
	assert.True(t, snapshots[0].IsCompressed)
}

func TestService_CreateBackup_Disabled(t *testing.T) {
	svc, dataDir, _ := testService(t, func(o *Options) { o.Enabled = false })
	writeTree(t, dataDir, map[string]string{"store.json": "x"})

	_, err := svc.CreateBackup(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfiguration))
}

func TestService_CreateBackup_MissingDataDir(t *testing.T) {
	svc, dataDir, _ := testService(t, nil)
	require.NoError(t, os.RemoveAll(dataDir))

	_, err := svc.CreateBackup(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSourceMissing))
}

func TestService_CreateBackup_UncompressedFolderSnapshot(t *testing.T) {
	svc, dataDir, _ := testService(t, func(o *Options) { o.Compression.Enabled = false })
	source := map[string]string{"store.json": "x", "sub/a.dat": "y"}
	writeTree(t, dataDir, source)

	path, err := svc.CreateBackup(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, filepath.Ext(path) == FolderBackupExtension)
	assert.Equal(t, source, readTree(t, path))
}

func TestService_CreateBackup_SequentialCreatesGetDistinctNames(t *testing.T) {
	svc, dataDir, _ := testService(t, nil)
	writeTree(t, dataDir, map[string]string{"store.json": "x"})

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		path, err := svc.CreateBackup(context.Background(), "")
		require.NoError(t, err)
		assert.False(t, seen[path], "snapshot path %s allocated twice", path)
		seen[path] = true
	}

	snapshots, err := svc.GetAvailableBackups()
	require.NoError(t, err)
	assert.Len(t, snapshots, 3)
}

func TestService_CreateBackup_RetentionCapsCatalog(t *testing.T) {
	svc, dataDir, _ := testService(t, func(o *Options) {
		o.Retention.MaxBackups = 3
	})
	writeTree(t, dataDir, map[string]string{"store.json": "x"})

	var paths []string
	for i := 0; i < 5; i++ {
		path, err := svc.CreateBackup(context.Background(), "")
		require.NoError(t, err)

		// The returned snapshot must survive the retention pass that ran
		// inside the same create; a freed older name must never be reused
		// for it.
		_, statErr := os.Stat(path)
		require.NoError(t, statErr, "create %d returned a path that does not exist afterwards", i+1)
		paths = append(paths, path)
	}

	snapshots, err := svc.GetAvailableBackups()
	require.NoError(t, err)
	require.Len(t, snapshots, 3)

	// The three that remain are exactly the three most recently created.
	remaining := make([]string, 0, 3)
	for _, s := range snapshots {
		remaining = append(remaining, s.Path)
	}
	assert.ElementsMatch(t, paths[2:], remaining)
}

func TestService_CreateBackup_ConcurrentCallsBothSucceed(t *testing.T) {
	svc, dataDir, _ := testService(t, nil)
	writeTree(t, dataDir, map[string]string{"store.json": "x"})

	var wg sync.WaitGroup
	paths := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = svc.CreateBackup(context.Background(), "")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, paths[0], paths[1])

	snapshots, err := svc.GetAvailableBackups()
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)
}

func TestService_RestoreBackup_RoundTrip(t *testing.T) {
	svc, dataDir, _ := testService(t, nil)
	original := map[string]string{"store.json": `{"v":1}`, "sub/a.dat": "x"}
	writeTree(t, dataDir, original)

	path, err := svc.CreateBackup(context.Background(), "before-change")
	require.NoError(t, err)

	// Mutate the live directory, then restore.
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "store.json"), []byte(`{"v":2}`), 0644))
	require.NoError(t, os.Remove(filepath.Join(dataDir, "sub", "a.dat")))

	result, err := svc.RestoreBackup(context.Background(), path, true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, original, readTree(t, dataDir))

	// The safety backup joined the catalog under the reserved marker.
	snapshots, err := svc.GetAvailableBackups()
	require.NoError(t, err)
	var safetyCount int
	for _, s := range snapshots {
		if s.IsSafetyBackup() {
			safetyCount++
		}
	}
	assert.Equal(t, 1, safetyCount)
}

func TestService_RestoreBackup_TruncatedSnapshotIsRejectedBeforeMutation(t *testing.T) {
	svc, dataDir, _ := testService(t, nil)
	live := map[string]string{"store.json": "live data"}
	writeTree(t, dataDir, live)

	path, err := svc.CreateBackup(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, 0))

	vr := svc.ValidateBackup(path)
	assert.False(t, vr.Valid)
	assert.Contains(t, vr.Errors, "file is empty")

	result, err := svc.RestoreBackup(context.Background(), path, true)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidationRejected))
	assert.Equal(t, live, readTree(t, dataDir))
}

func TestService_DeleteBackup(t *testing.T) {
	svc, dataDir, _ := testService(t, nil)
	writeTree(t, dataDir, map[string]string{"store.json": "x"})

	path, err := svc.CreateBackup(context.Background(), "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBackup(path))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Deleting an absent snapshot is not an error.
	require.NoError(t, svc.DeleteBackup(path))
}

func TestService_Prune_DryRunOnDemand(t *testing.T) {
	svc, dataDir, _ := testService(t, func(o *Options) {
		o.Retention.MaxBackups = 1
	})
	writeTree(t, dataDir, map[string]string{"store.json": "x"})

	// Retention runs inside CreateBackup too, so after two creates only one
	// snapshot remains and a dry-run prune has nothing to flag.
	_, err := svc.CreateBackup(context.Background(), "")
	require.NoError(t, err)
	_, err = svc.CreateBackup(context.Background(), "")
	require.NoError(t, err)

	result, err := svc.Prune(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 0, result.Deleted)

	snapshots, err := svc.GetAvailableBackups()
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func TestService_GetBackupDirectorySize(t *testing.T) {
	svc, dataDir, _ := testService(t, nil)
	assert.Equal(t, int64(0), svc.GetBackupDirectorySize())

	writeTree(t, dataDir, map[string]string{"store.json": "some payload"})
	_, err := svc.CreateBackup(context.Background(), "")
	require.NoError(t, err)
	assert.Greater(t, svc.GetBackupDirectorySize(), int64(0))
}
