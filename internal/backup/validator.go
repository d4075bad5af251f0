package backup

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dirvault/internal/logging"
)

// defaultDataFileExtensions are the extensions the validator expects a useful
// snapshot of the data store to contain. Their absence is a warning, never a
// hard failure.
var defaultDataFileExtensions = []string{".json", ".db", ".dat"}

// Validator inspects a snapshot file for structural soundness without fully
// restoring it.
type Validator struct {
	compression        *CompressionManager
	dataFileExtensions []string
	logger             *logging.Logger
}

// NewValidator creates a validator.
func NewValidator(compression *CompressionManager, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Validator{
		compression:        compression,
		dataFileExtensions: defaultDataFileExtensions,
		logger:             logger,
	}
}

// Validate applies the structural rules in order, short-circuiting on the
// first hard failure. Metadata is populated as far as inspection got. Every
// inspection emits a structured validation record.
func (v *Validator) Validate(path string) *ValidationResult {
	result := &ValidationResult{
		Path:      path,
		CheckedAt: time.Now(),
	}

	info, err := os.Stat(path)
	if err != nil {
		result.Errors = append(result.Errors, "file does not exist")
	} else {
		result.Metadata.ModifiedAt = info.ModTime()
		if info.IsDir() {
			result = v.validateFolder(path, result)
		} else {
			result = v.validateArchive(path, info.Size(), result)
		}
	}

	v.logger.LogValidation(path, result.Valid, len(result.Errors), len(result.Warnings))
	return result
}

func (v *Validator) validateArchive(path string, size int64, result *ValidationResult) *ValidationResult {
	if size == 0 {
		result.Errors = append(result.Errors, "file is empty")
		return result
	}
	result.Metadata.CompressedSize = size

	codec, ok := v.compression.CodecForPath(path)
	if !ok {
		result.Errors = append(result.Errors, "unrecognized archive format")
		return result
	}

	file, err := os.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, "archive is not readable")
		return result
	}
	defer file.Close()

	decompressor, err := codec.NewReader(file)
	if err != nil {
		result.Errors = append(result.Errors, "archive is corrupted")
		return result
	}
	defer decompressor.Close()

	tr := tar.NewReader(decompressor)
	entryCount := 0
	var uncompressed int64
	hasDataFile := false
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, "archive is corrupted")
			return result
		}
		entryCount++
		uncompressed += header.Size
		if header.Typeflag == tar.TypeReg && v.isDataFile(header.Name) {
			hasDataFile = true
		}
	}

	result.Metadata.EntryCount = entryCount
	result.Metadata.UncompressedSize = uncompressed

	if entryCount == 0 {
		result.Errors = append(result.Errors, "archive is empty")
		return result
	}
	if !hasDataFile {
		result.Warnings = append(result.Warnings, "may not contain data files")
	}

	result.Valid = true
	return result
}

func (v *Validator) validateFolder(path string, result *ValidationResult) *ValidationResult {
	size, err := dirSize(path)
	if err != nil {
		result.Errors = append(result.Errors, "backup folder is not readable")
		return result
	}
	result.Metadata.UncompressedSize = size
	result.Metadata.CompressedSize = size

	nonEmpty, err := dirNonEmpty(path)
	if err != nil {
		result.Errors = append(result.Errors, "backup folder is not readable")
		return result
	}

	entryCount := 0
	hasDataFile := false
	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if p == path {
			return nil
		}
		entryCount++
		if d.Type().IsRegular() && v.isDataFile(d.Name()) {
			hasDataFile = true
		}
		return nil
	})
	result.Metadata.EntryCount = entryCount

	if !nonEmpty {
		// An empty folder snapshot is structurally fine, just informationally
		// weak: mirror the archive path's warning.
		result.Warnings = append(result.Warnings, "may not contain data files")
		result.Valid = true
		return result
	}
	if !hasDataFile {
		result.Warnings = append(result.Warnings, "may not contain data files")
	}

	result.Valid = true
	return result
}

func (v *Validator) isDataFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range v.dataFileExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
