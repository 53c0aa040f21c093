package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// UI writes human-facing output. Status lines go to stderr so stdout stays
// clean for JSON results.
type UI struct {
	out     io.Writer
	err     io.Writer
	noColor bool
	quiet   bool
}

// NewUI creates a UI on the process streams.
func NewUI(noColor, quiet bool) *UI {
	if noColor {
		color.NoColor = true
	}
	return &UI{
		out:     os.Stdout,
		err:     os.Stderr,
		noColor: noColor,
		quiet:   quiet,
	}
}

// IsTerminal reports whether stderr is attached to a terminal.
func IsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (ui *UI) printf(c color.Attribute, symbol, format string, args ...interface{}) {
	if ui.quiet {
		return
	}
	msg := fmt.Sprintf("%s %s\n", symbol, fmt.Sprintf(format, args...))
	if ui.noColor {
		fmt.Fprint(ui.err, msg)
		return
	}
	color.New(c).Fprint(ui.err, msg)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.printf(color.FgGreen, "✓", format, args...)
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	ui.printf(color.FgRed, "✗", format, args...)
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.printf(color.FgYellow, "⚠", format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.printf(color.FgCyan, "ℹ", format, args...)
}

// Table writes rows aligned in columns to stdout.
func (ui *UI) Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(ui.out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// Spinner wraps a spinner for indeterminate waits.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner returns a spinner, or nil when output is quiet or not a terminal.
func (ui *UI) NewSpinner(message string) *Spinner {
	if ui.quiet || !IsTerminal() {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = ui.err
	return &Spinner{s: s}
}

// Start starts the animation. Nil-safe.
func (s *Spinner) Start() {
	if s != nil {
		s.s.Start()
	}
}

// Stop stops the animation. Nil-safe.
func (s *Spinner) Stop() {
	if s != nil {
		s.s.Stop()
	}
}

// ProgressBar tracks a batch of files.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar returns a bar, or nil when output is quiet or not a terminal.
func (ui *UI) NewProgressBar(total int, description string) *ProgressBar {
	if ui.quiet || !IsTerminal() {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(ui.err),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(ui.err, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ProgressBar{bar: bar}
}

// Add advances the bar by one. Nil-safe.
func (p *ProgressBar) Add() {
	if p != nil {
		_ = p.bar.Add(1)
	}
}

// Finish completes the bar. Nil-safe.
func (p *ProgressBar) Finish() {
	if p != nil {
		_ = p.bar.Finish()
	}
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
