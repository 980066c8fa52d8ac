// Package ui renders operator-facing output. All presentation state is
// built once into an immutable Printer and passed down; nothing in this
// package mutates shared state after construction.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Options selects the presentation profile for one invocation.
type Options struct {
	NoColor     bool
	Interactive bool // stdout attached to a capable terminal
	Debug       bool

	// Stdout and Stderr default to the process streams; tests override.
	Stdout io.Writer
	Stderr io.Writer
}

// StdoutIsInteractive reports whether stdout is attached to a terminal
// capable of styled output.
func StdoutIsInteractive() bool {
	return termenv.NewOutput(os.Stdout).ColorProfile() != termenv.Ascii
}

// Printer writes status lines to stderr and data records to stdout.
// Status lines are styled when interactive; data output falls back to
// bare newline-delimited records otherwise.
type Printer struct {
	interactive bool
	stdout      io.Writer
	stderr      io.Writer
	logger      *log.Logger

	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	bold    lipgloss.Style
	dim     lipgloss.Style
}

// NewPrinter builds the presentation configuration once at startup.
func NewPrinter(opts Options) *Printer {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	renderer := lipgloss.NewRenderer(stderr)
	if opts.NoColor || !opts.Interactive {
		renderer.SetColorProfile(termenv.Ascii)
	}

	logger := log.NewWithOptions(stderr, log.Options{ReportTimestamp: false})
	if opts.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	return &Printer{
		interactive: opts.Interactive,
		stdout:      stdout,
		stderr:      stderr,
		logger:      logger,
		success:     renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		failure:     renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		warning:     renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		info:        renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		bold:        renderer.NewStyle().Bold(true),
		dim:         renderer.NewStyle().Faint(true),
	}
}

// Success prints a green [+] status line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.stderr, "%s %s\n", p.success.Render("[+]"), fmt.Sprintf(format, args...))
}

// Failure prints a red [-] status line.
func (p *Printer) Failure(format string, args ...any) {
	fmt.Fprintf(p.stderr, "%s %s\n", p.failure.Render("[-]"), fmt.Sprintf(format, args...))
}

// Warning prints a yellow [!] status line.
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintf(p.stderr, "%s %s\n", p.warning.Render("[!]"), fmt.Sprintf(format, args...))
}

// Info prints a [*] status line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.stderr, "%s %s\n", p.info.Render("[*]"), fmt.Sprintf(format, args...))
}

// EmptyState prints a dim message for empty results.
func (p *Printer) EmptyState(msg string) {
	fmt.Fprintf(p.stderr, "  %s\n", p.dim.Render(msg))
}

// Debugf logs a debug line through the structured logger. Silent unless
// the printer was built with Options.Debug.
func (p *Printer) Debugf(format string, args ...any) {
	p.logger.Debugf(format, args...)
}

// Errorf logs an error line through the structured logger.
func (p *Printer) Errorf(format string, args ...any) {
	p.logger.Errorf(format, args...)
}

// Record writes one data record to stdout.
func (p *Printer) Record(line string) {
	fmt.Fprintln(p.stdout, line)
}

// Table writes rows to stdout. Interactive output gets tab-aligned
// columns under a bold header; otherwise each row becomes one bare
// tab-separated record with no header.
func (p *Printer) Table(headers []string, rows [][]string) {
	if !p.interactive {
		for _, row := range rows {
			fmt.Fprintln(p.stdout, strings.Join(row, "\t"))
		}
		return
	}
	w := tabwriter.NewWriter(p.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, p.bold.Render(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}
