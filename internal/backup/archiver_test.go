package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchiver(t *testing.T) *ArchiveBuilder {
	t.Helper()
	return NewArchiveBuilder(NewCompressionManager(), testLogger(t))
}

func TestArchiveBuilder_BuildAndExtract_RoundTrip(t *testing.T) {
	source := map[string]string{
		"store.json":        `{"answer":42}`,
		"nested/deep/a.dat": "payload-a",
		"nested/b.db":       "payload-b",
		"empty.txt":         "",
	}

	for _, algorithm := range []CompressionType{CompressionTypeGzip, CompressionTypeZstd, CompressionTypeLZ4} {
		t.Run(string(algorithm), func(t *testing.T) {
			ab := newTestArchiver(t)
			srcDir := t.TempDir()
			writeTree(t, srcDir, source)

			codec, err := ab.compression.Codec(algorithm)
			require.NoError(t, err)
			destPath := filepath.Join(t.TempDir(), "snap"+codec.Extension())

			built, err := ab.Build(context.Background(), srcDir, destPath, CompressionOptions{
				Enabled:   true,
				Algorithm: algorithm,
				Level:     CompressionLevelOptimal,
			})
			require.NoError(t, err)
			assert.Equal(t, destPath, built)

			// The source survives untouched.
			assert.Equal(t, source, readTree(t, srcDir))

			outDir := t.TempDir()
			require.NoError(t, ab.Extract(context.Background(), built, outDir))
			assert.Equal(t, source, readTree(t, outDir))
		})
	}
}

func TestArchiveBuilder_Build_FolderCopy(t *testing.T) {
	ab := newTestArchiver(t)
	srcDir := t.TempDir()
	source := map[string]string{"store.json": "x", "sub/a.dat": "y"}
	writeTree(t, srcDir, source)
	destPath := filepath.Join(t.TempDir(), "snap.bak")

	built, err := ab.Build(context.Background(), srcDir, destPath, CompressionOptions{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, destPath, built)

	info, err := os.Stat(built)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, source, readTree(t, built))
}

func TestArchiveBuilder_Build_SourceMissing(t *testing.T) {
	ab := newTestArchiver(t)
	destPath := filepath.Join(t.TempDir(), "snap.tar.zst")

	_, err := ab.Build(context.Background(), filepath.Join(t.TempDir(), "absent"), destPath, CompressionOptions{
		Enabled:   true,
		Algorithm: CompressionTypeZstd,
		Level:     CompressionLevelOptimal,
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSourceMissing))

	_, statErr := os.Stat(destPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestArchiveBuilder_Build_SourceIsAFile(t *testing.T) {
	ab := newTestArchiver(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := ab.Build(context.Background(), file, filepath.Join(t.TempDir(), "snap.tar.zst"), CompressionOptions{
		Enabled:   true,
		Algorithm: CompressionTypeZstd,
		Level:     CompressionLevelOptimal,
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSourceMissing))
}

func TestArchiveBuilder_Build_EmptySourceStillProducesReadableArchive(t *testing.T) {
	ab := newTestArchiver(t)
	srcDir := t.TempDir()
	destPath := filepath.Join(t.TempDir(), "snap.tar.zst")

	built, err := ab.Build(context.Background(), srcDir, destPath, CompressionOptions{
		Enabled:   true,
		Algorithm: CompressionTypeZstd,
		Level:     CompressionLevelOptimal,
	})
	require.NoError(t, err)

	// The root entry keeps an empty-source archive structurally non-empty.
	validator := NewValidator(ab.compression, testLogger(t))
	result := validator.Validate(built)
	assert.True(t, result.Valid)
	assert.GreaterOrEqual(t, result.Metadata.EntryCount, 1)
}

func TestArchiveBuilder_Build_CanceledContextLeavesNoArtifact(t *testing.T) {
	ab := newTestArchiver(t)
	srcDir := t.TempDir()
	writeTree(t, srcDir, map[string]string{"a.json": "x"})
	destPath := filepath.Join(t.TempDir(), "snap.tar.zst")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ab.Build(ctx, srcDir, destPath, CompressionOptions{
		Enabled:   true,
		Algorithm: CompressionTypeZstd,
		Level:     CompressionLevelOptimal,
	})
	require.Error(t, err)

	_, statErr := os.Stat(destPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestArchiveBuilder_Build_SkipsSymlinks(t *testing.T) {
	ab := newTestArchiver(t)
	srcDir := t.TempDir()
	writeTree(t, srcDir, map[string]string{"real.json": "x"})
	require.NoError(t, os.Symlink(filepath.Join(srcDir, "real.json"), filepath.Join(srcDir, "link.json")))

	destPath := filepath.Join(t.TempDir(), "snap.tar.gz")
	built, err := ab.Build(context.Background(), srcDir, destPath, CompressionOptions{
		Enabled:   true,
		Algorithm: CompressionTypeGzip,
		Level:     CompressionLevelFastest,
	})
	require.NoError(t, err)

	outDir := t.TempDir()
	require.NoError(t, ab.Extract(context.Background(), built, outDir))
	assert.Equal(t, map[string]string{"real.json": "x"}, readTree(t, outDir))
}

func TestArchiveBuilder_Extract_UnrecognizedFormat(t *testing.T) {
	ab := newTestArchiver(t)
	file := filepath.Join(t.TempDir(), "snap.tar")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	err := ab.Extract(context.Background(), file, t.TempDir())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCorruption))
}

func TestArchiveBuilder_Extract_GarbageArchive(t *testing.T) {
	ab := newTestArchiver(t)
	file := filepath.Join(t.TempDir(), "snap.tar.gz")
	require.NoError(t, os.WriteFile(file, []byte("this is not gzip"), 0644))

	err := ab.Extract(context.Background(), file, t.TempDir())
	assert.Error(t, err)
}
