// Package output provides formatted output utilities for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pseudotest/pseudotest/pkg/compare"
)

// statusWidth is the column at which match verdicts are aligned.
const statusWidth = 50

// Writer handles CLI output formatting.
type Writer struct {
	out   io.Writer
	err   io.Writer
	color bool
}

// New creates a new Writer with default settings.
func New() *Writer {
	return &Writer{
		out:   os.Stdout,
		err:   os.Stderr,
		color: isTerminal(),
	}
}

// NewWithWriters creates a Writer with custom io.Writers (for testing).
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{
		out:   out,
		err:   err,
		color: color,
	}
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Error writes to stderr.
func (w *Writer) Error(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format, args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Warning prints a warning message.
func (w *Writer) Warning(format string, args ...interface{}) {
	if w.color {
		w.Errorln(yellow+"warning: "+format+reset, args...)
	} else {
		w.Errorln("warning: "+format, args...)
	}
}

// ErrorPrefix prints an error message with the program prefix to stderr.
func (w *Writer) ErrorPrefix(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Errorln("%spseudotest:%s %s", red, reset, msg)
	} else {
		w.Errorln("pseudotest: %s", msg)
	}
}

// Indent returns the prefix for the given nesting level.
func Indent(level int) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat("  ", level)
}

// Line prints an indented line to stdout.
func (w *Writer) Line(level int, format string, args ...interface{}) {
	w.Println(Indent(level)+format, args...)
}

// Title prints the test name banner.
func (w *Writer) Title(name string) {
	if w.color {
		w.Println("%s***** %s *****%s", blue, name, reset)
	} else {
		w.Println("***** %s *****", name)
	}
}

// Status prints a name padded to a fixed column followed by its verdict.
func (w *Writer) Status(level int, name string, ok bool) {
	width := statusWidth - 2*level
	if width < len(name) {
		width = len(name)
	}
	verdict := "[FAIL]"
	switch {
	case ok && w.color:
		verdict = "[" + green + " OK " + reset + "]"
	case ok:
		verdict = "[ OK ]"
	case w.color:
		verdict = "[" + red + "FAIL" + reset + "]"
	}
	w.Println("%s%-*s %s", Indent(level), width, name, verdict)
}

func (w *Writer) rule(level int) {
	w.Line(level, "%s", strings.Repeat("-", 40))
}

// Comparison prints the detail block of a failed comparison.
func (w *Writer) Comparison(level int, o compare.Outcome) {
	w.rule(level)
	if o.Numeric {
		w.Line(level, "Calculated value : %s", o.Calculated)
		w.Line(level, "Reference value  : %s", o.Reference)
		w.Line(level, "Difference       : %g", o.Difference)
		if dev, ok := o.Deviation(); ok {
			w.Line(level, "Deviation [%%]    : %.6f", dev)
		}
		if o.HasTolerance && o.Tolerance != 0 {
			w.Line(level, "Tolerance        : %g", o.Tolerance)
			if rel, ok := o.RelativeTolerance(); ok {
				w.Line(level, "Tolerance [%%]    : %.6f", rel)
			}
		}
	} else {
		w.Line(level, "Calculated value : '%s'", o.Calculated)
		w.Line(level, "Expected value   : '%s'", o.Reference)
	}
	w.rule(level)
}

// ExtractionFailure prints why no value could be extracted.
func (w *Writer) ExtractionFailure(level int, reason string) {
	w.rule(level)
	w.Line(level, "extraction failed: %s", reason)
	w.rule(level)
}

// ConfigFailure prints a match configuration error and the keys the match
// was defined with.
func (w *Writer) ConfigFailure(level int, err error, keys []string) {
	w.rule(level)
	w.Line(level, "configuration error: %v", err)
	if len(keys) > 0 {
		w.Line(level, "keys: %s", strings.Join(keys, ", "))
	}
	w.rule(level)
}

// Stream is one captured output stream of an execution.
type Stream struct {
	Name    string // STDOUT or STDERR
	Lines   []string
	Missing bool
	// Truncated is set when Lines holds only the tail of the stream.
	Truncated bool
}

// ExecutionOutput prints captured output of a failed execution.
func (w *Writer) ExecutionOutput(input string, streams []Stream) {
	for _, s := range streams {
		w.Println("")
		switch {
		case s.Missing:
			w.colored(red, "=== %s from %s does not exist ===", s.Name, input)
			continue
		case len(s.Lines) == 0:
			w.colored(red, "=== %s from %s is empty ===", s.Name, input)
			continue
		}
		w.colored(red, "=== %s from %s ===", s.Name, input)
		if s.Truncated {
			w.Println("... (showing last %d lines, use -vv to see full output)", len(s.Lines))
		}
		for _, line := range s.Lines {
			w.Println("%s", line)
		}
		w.colored(red, "=== End %s ===", s.Name)
	}
}

func (w *Writer) colored(color, format string, args ...interface{}) {
	if w.color {
		w.Println(color+format+reset, args...)
	} else {
		w.Println(format, args...)
	}
}

// Summary prints the run counters.
func (w *Writer) Summary(failedExecutions, totalMatches, failedMatches int) {
	w.Println("Test Summary:")
	w.Line(1, "Failed executions : %5d", failedExecutions)
	w.Line(1, "Total matches     : %5d", totalMatches)
	w.Line(1, "Failed matches    : %5d", failedMatches)
}

// UpdateSummary reports what an update run wrote.
func (w *Writer) UpdateSummary(mode string, keys []string, path string) {
	title := cases.Title(language.English).String(mode)
	if len(keys) == 0 {
		w.Println("%s update: no changes", title)
		return
	}
	w.Println("%s update: %d value(s) written to %s", title, len(keys), path)
	for _, k := range keys {
		w.Line(1, "- %s", k)
	}
}

// isTerminal returns true if stdout is a terminal.
func isTerminal() bool {
	if fi, _ := os.Stdout.Stat(); fi != nil {
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// ANSI color codes.
const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
)
