package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dirvault/internal/logging"
)

// testLogger returns a quiet logger so test output stays readable.
func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(logging.Config{
		Level:  logging.LogLevelQuiet,
		Output: os.Stderr,
	})
	require.NoError(t, err)
	return logger
}

// captureLogger returns a logger emitting JSON records into the buffer, for
// asserting on structured log output.
func captureLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := logging.NewLogger(logging.Config{
		Level:  logging.LogLevelNormal,
		Output: &buf,
		Format: "json",
	})
	require.NoError(t, err)
	return logger, &buf
}

// writeTree materializes the given relative-path -> contents map under dir.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
}

// readTree returns the relative-path -> contents map of all regular files
// under dir.
func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}

// testService builds a Service over fresh temp data and backup directories.
func testService(t *testing.T, mutate func(*Options)) (*Service, string, string) {
	t.Helper()
	dataDir := t.TempDir()
	backupDir := filepath.Join(t.TempDir(), "backups")

	opts := DefaultOptions(dataDir, backupDir)
	if mutate != nil {
		mutate(opts)
	}
	svc, err := NewService(opts, testLogger(t))
	require.NoError(t, err)
	return svc, dataDir, backupDir
}
