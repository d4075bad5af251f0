package display

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Printer renders CLI output with color when the terminal supports it.
type Printer struct {
	out            io.Writer
	colorSupported bool
	profile        termenv.Profile

	success *color.Color
	failure *color.Color
	warning *color.Color
	accent  *color.Color
}

// NewPrinter creates a printer writing to stdout with terminal detection.
func NewPrinter(noColor bool) *Printer {
	return NewPrinterTo(os.Stdout, noColor)
}

// NewPrinterTo creates a printer writing to w.
func NewPrinterTo(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:            w,
		colorSupported: !noColor && detectColorSupport(),
		profile:        termenv.ColorProfile(),
		success:        color.New(color.FgGreen),
		failure:        color.New(color.FgRed),
		warning:        color.New(color.FgYellow),
		accent:         color.New(color.FgCyan),
	}
	if !p.colorSupported {
		for _, c := range []*color.Color{p.success, p.failure, p.warning, p.accent} {
			c.DisableColor()
		}
	}
	return p
}

// detectColorSupport checks if the terminal supports colors
func detectColorSupport() bool {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.success.Sprintf("✓ "+format, args...))
}

// Failure prints a failure line.
func (p *Printer) Failure(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.failure.Sprintf("✗ "+format, args...))
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.warning.Sprintf("! "+format, args...))
}

// Info prints a plain line.
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Accent returns the text styled with the accent color.
func (p *Printer) Accent(text string) string {
	return p.accent.Sprint(text)
}
