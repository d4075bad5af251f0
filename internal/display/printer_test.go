package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter_LinesWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf, true)

	p.Success("backup created: %s", "a.tar.zst")
	p.Failure("restore failed")
	p.Warning("snapshot has no data files")
	p.Info("%d backups available", 3)

	out := buf.String()
	assert.Contains(t, out, "✓ backup created: a.tar.zst")
	assert.Contains(t, out, "✗ restore failed")
	assert.Contains(t, out, "! snapshot has no data files")
	assert.Contains(t, out, "3 backups available")
	// With color disabled no escape sequences leak into the output.
	assert.NotContains(t, out, "\x1b[")
}

func TestPrinter_AccentPlainWhenColorDisabled(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf, true)

	assert.Equal(t, "20250101-090000.tar.zst", p.Accent("20250101-090000.tar.zst"))
}

func TestNewPrinter(t *testing.T) {
	p := NewPrinter(true)
	require.NotNil(t, p)
	assert.False(t, p.colorSupported)
}
