package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dirvault/internal/logging"
)

// ArchiveBuilder produces a snapshot of a directory, either as a compressed
// tar archive or as a verbatim directory copy, and extracts archives back out.
type ArchiveBuilder struct {
	compression *CompressionManager
	logger      *logging.Logger
}

// NewArchiveBuilder creates a new archive builder.
func NewArchiveBuilder(compression *CompressionManager, logger *logging.Logger) *ArchiveBuilder {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &ArchiveBuilder{
		compression: compression,
		logger:      logger,
	}
}

// Build snapshots sourceDir into destPath. With compression the snapshot is a
// tar archive wrapped in the given codec; without it, a recursive byte-for-byte
// copy into a destPath directory. The source directory is never mutated.
//
// Any error means no usable snapshot was produced: a truncated artifact is
// removed before returning.
func (ab *ArchiveBuilder) Build(ctx context.Context, sourceDir, destPath string, opts CompressionOptions) (string, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewSourceMissingError(fmt.Sprintf("source directory does not exist: %s", sourceDir), err)
		}
		return "", NewIOError("failed to stat source directory", err)
	}
	if !info.IsDir() {
		return "", NewSourceMissingError(fmt.Sprintf("source path is not a directory: %s", sourceDir), nil)
	}

	if opts.Enabled {
		err = ab.buildArchive(ctx, sourceDir, destPath, opts)
	} else {
		err = ab.buildFolderCopy(ctx, sourceDir, destPath)
	}
	if err != nil {
		if rmErr := removeArtifact(destPath); rmErr != nil {
			ab.logger.Warnf("Failed to remove partial snapshot %s: %v", destPath, rmErr)
		}
		return "", err
	}
	return destPath, nil
}

func (ab *ArchiveBuilder) buildArchive(ctx context.Context, sourceDir, destPath string, opts CompressionOptions) error {
	codec, err := ab.compression.Codec(opts.Algorithm)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return NewIOError("failed to create archive file", err)
	}

	compressor, err := codec.NewWriter(file, opts.Level)
	if err != nil {
		file.Close()
		return err
	}
	tw := tar.NewWriter(compressor)

	fail := func(cause error, message string) error {
		tw.Close()
		compressor.Close()
		file.Close()
		if ctx.Err() != nil && cause == ctx.Err() {
			return cause
		}
		return NewIOError(message, cause)
	}

	// The root directory entry guarantees at least one entry even for an empty
	// data directory, keeping such snapshots structurally readable.
	rootInfo, err := os.Stat(sourceDir)
	if err != nil {
		return fail(err, "failed to stat source directory")
	}
	rootHeader, err := tar.FileInfoHeader(rootInfo, "")
	if err != nil {
		return fail(err, "failed to build root header")
	}
	rootHeader.Name = "./"
	if err := tw.WriteHeader(rootHeader); err != nil {
		return fail(err, "failed to write root header")
	}

	walkErr := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == sourceDir {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if d.Type()&fs.ModeSymlink != 0 {
			ab.logger.Warnf("Skipping symlink in source directory: %s", path)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = name
		if d.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, src)
		src.Close()
		return err
	})
	if walkErr != nil {
		return fail(walkErr, "failed to archive source directory")
	}

	// Close in order and sync so the finished archive is on disk before the
	// builder returns; the catalog must see it immediately.
	if err := tw.Close(); err != nil {
		compressor.Close()
		file.Close()
		return NewIOError("failed to finalize archive", err)
	}
	if err := compressor.Close(); err != nil {
		file.Close()
		return NewIOError("failed to finalize compressed stream", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return NewIOError("failed to sync archive file", err)
	}
	if err := file.Close(); err != nil {
		return NewIOError("failed to close archive file", err)
	}
	return nil
}

func (ab *ArchiveBuilder) buildFolderCopy(ctx context.Context, sourceDir, destPath string) error {
	if err := os.MkdirAll(destPath, 0755); err != nil {
		return NewIOError("failed to create snapshot directory", err)
	}
	copied, skipped, err := copyTree(ctx, sourceDir, destPath)
	if err != nil {
		if ctx.Err() != nil && err == ctx.Err() {
			return err
		}
		return NewIOError("failed to copy source directory", err)
	}
	if skipped > 0 {
		ab.logger.Warnf("Skipped %d non-regular entries while copying %s", skipped, sourceDir)
	}
	ab.logger.Debugf("Copied %d files from %s to %s", copied, sourceDir, destPath)
	return nil
}

// Extract unpacks the archive at archivePath into destDir. Entry names are
// confined to destDir; an entry escaping it fails the extraction.
func (ab *ArchiveBuilder) Extract(ctx context.Context, archivePath, destDir string) error {
	codec, ok := ab.compression.CodecForPath(archivePath)
	if !ok {
		return NewCorruptionError(fmt.Sprintf("unrecognized archive format: %s", archivePath), nil)
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return NewIOError("failed to open archive", err)
	}
	defer file.Close()

	decompressor, err := codec.NewReader(file)
	if err != nil {
		return err
	}
	defer decompressor.Close()

	tr := tar.NewReader(decompressor)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return NewCorruptionError("archive is corrupted", err)
		}

		name := filepath.Clean(filepath.FromSlash(header.Name))
		if name == "." {
			continue
		}
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return NewCorruptionError(fmt.Sprintf("archive entry escapes destination: %s", header.Name), nil)
		}
		target := filepath.Join(destDir, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode).Perm()); err != nil {
				return NewIOError("failed to create directory during extraction", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return NewIOError("failed to create parent directory during extraction", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return NewIOError("failed to create file during extraction", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return NewIOError("failed to extract file contents", err)
			}
			if err := out.Close(); err != nil {
				return NewIOError("failed to close extracted file", err)
			}
		default:
			ab.logger.Warnf("Skipping unsupported archive entry type %d: %s", header.Typeflag, header.Name)
		}
	}
}
