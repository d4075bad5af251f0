package backup

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType identifies a compression algorithm for archive snapshots.
type CompressionType string

const (
	CompressionTypeGzip CompressionType = "gzip"
	CompressionTypeZstd CompressionType = "zstd"
	CompressionTypeLZ4  CompressionType = "lz4"
)

// CompressionLevel is an algorithm-independent effort setting. Each codec maps
// it onto its own level scale.
type CompressionLevel string

const (
	CompressionLevelNone     CompressionLevel = "none"
	CompressionLevelFastest  CompressionLevel = "fastest"
	CompressionLevelOptimal  CompressionLevel = "optimal"
	CompressionLevelSmallest CompressionLevel = "smallest"
)

// Codec wraps a tar stream in a compression format.
type Codec interface {
	Algorithm() CompressionType
	// Extension returns the full archive suffix, e.g. ".tar.zst".
	Extension() string
	NewWriter(w io.Writer, level CompressionLevel) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// CompressionManager manages the registered codecs.
type CompressionManager struct {
	codecs map[CompressionType]Codec
}

// NewCompressionManager creates a manager with all supported codecs registered.
func NewCompressionManager() *CompressionManager {
	cm := &CompressionManager{
		codecs: make(map[CompressionType]Codec),
	}
	cm.codecs[CompressionTypeGzip] = &GzipCodec{}
	cm.codecs[CompressionTypeZstd] = &ZstdCodec{}
	cm.codecs[CompressionTypeLZ4] = &LZ4Codec{}
	return cm
}

// Codec returns the codec for the given algorithm.
func (cm *CompressionManager) Codec(algorithm CompressionType) (Codec, error) {
	codec, exists := cm.codecs[algorithm]
	if !exists {
		return nil, NewConfigurationError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
	return codec, nil
}

// CodecForPath returns the codec matching the path's archive extension.
func (cm *CompressionManager) CodecForPath(path string) (Codec, bool) {
	for _, codec := range cm.codecs {
		if strings.HasSuffix(path, codec.Extension()) {
			return codec, true
		}
	}
	return nil, false
}

// SupportedAlgorithms returns the registered algorithms.
func (cm *CompressionManager) SupportedAlgorithms() []CompressionType {
	algorithms := make([]CompressionType, 0, len(cm.codecs))
	for algorithm := range cm.codecs {
		algorithms = append(algorithms, algorithm)
	}
	return algorithms
}

// IsSupportedAlgorithm reports whether the algorithm has a registered codec.
func IsSupportedAlgorithm(algorithm CompressionType) bool {
	switch algorithm {
	case CompressionTypeGzip, CompressionTypeZstd, CompressionTypeLZ4:
		return true
	}
	return false
}

// IsArchivePath reports whether the path carries a recognized archive suffix.
func IsArchivePath(path string) bool {
	return strings.HasSuffix(path, ".tar.gz") ||
		strings.HasSuffix(path, ".tar.zst") ||
		strings.HasSuffix(path, ".tar.lz4")
}

// GzipCodec implements Codec using klauspost's gzip.
type GzipCodec struct{}

func (gc *GzipCodec) Algorithm() CompressionType { return CompressionTypeGzip }
func (gc *GzipCodec) Extension() string          { return ".tar.gz" }

func (gc *GzipCodec) NewWriter(w io.Writer, level CompressionLevel) (io.WriteCloser, error) {
	gzLevel := gzip.DefaultCompression
	switch level {
	case CompressionLevelNone:
		gzLevel = gzip.NoCompression
	case CompressionLevelFastest:
		gzLevel = gzip.BestSpeed
	case CompressionLevelSmallest:
		gzLevel = gzip.BestCompression
	}
	writer, err := gzip.NewWriterLevel(w, gzLevel)
	if err != nil {
		return nil, NewIOError("failed to create gzip writer", err)
	}
	return writer, nil
}

func (gc *GzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	reader, err := gzip.NewReader(r)
	if err != nil {
		return nil, NewCorruptionError("failed to open gzip stream", err)
	}
	return reader, nil
}

// ZstdCodec implements Codec using klauspost's zstd.
type ZstdCodec struct{}

func (zc *ZstdCodec) Algorithm() CompressionType { return CompressionTypeZstd }
func (zc *ZstdCodec) Extension() string          { return ".tar.zst" }

func (zc *ZstdCodec) NewWriter(w io.Writer, level CompressionLevel) (io.WriteCloser, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case CompressionLevelNone, CompressionLevelFastest:
		encLevel = zstd.SpeedFastest
	case CompressionLevelSmallest:
		encLevel = zstd.SpeedBestCompression
	}
	writer, err := zstd.NewWriter(w, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, NewIOError("failed to create zstd writer", err)
	}
	return writer, nil
}

func (zc *ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	reader, err := zstd.NewReader(r)
	if err != nil {
		return nil, NewCorruptionError("failed to open zstd stream", err)
	}
	return reader.IOReadCloser(), nil
}

// LZ4Codec implements Codec using pierrec's lz4.
type LZ4Codec struct{}

func (lc *LZ4Codec) Algorithm() CompressionType { return CompressionTypeLZ4 }
func (lc *LZ4Codec) Extension() string          { return ".tar.lz4" }

func (lc *LZ4Codec) NewWriter(w io.Writer, level CompressionLevel) (io.WriteCloser, error) {
	lzLevel := lz4.Level5
	switch level {
	case CompressionLevelNone, CompressionLevelFastest:
		lzLevel = lz4.Fast
	case CompressionLevelSmallest:
		lzLevel = lz4.Level9
	}
	writer := lz4.NewWriter(w)
	if err := writer.Apply(lz4.CompressionLevelOption(lzLevel)); err != nil {
		return nil, NewIOError("failed to configure lz4 writer", err)
	}
	return writer, nil
}

func (lc *LZ4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
