package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Output handles styled terminal output.
type Output struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	debugC  *color.Color
}

// NewOutput creates a new Output instance.
func NewOutput() *Output {
	return &Output{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		debugC:  color.New(color.FgCyan),
	}
}

// SetNoColor disables colored output.
func (o *Output) SetNoColor(v bool) {
	color.NoColor = v
}

// Success prints a success message with a green checkmark.
func (o *Output) Success(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "%s %s\n", o.success.Sprint("✓"), fmt.Sprintf(format, args...))
}

// Error prints an error message with a red X.
func (o *Output) Error(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", o.fail.Sprint("✗"), fmt.Sprintf(format, args...))
}

// Warning prints a warning message with a yellow exclamation.
func (o *Output) Warning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", o.warn.Sprint("!"), fmt.Sprintf(format, args...))
}

// Info prints an informational message.
func (o *Output) Info(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// Println prints a line to stdout.
func (o *Output) Println(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// Debug prints a debug message to stderr.
func (o *Output) Debug(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", o.debugC.Sprint("[debug]"), fmt.Sprintf(format, args...))
}

// Table prints a simple aligned table.
func (o *Output) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		fmt.Fprintf(os.Stdout, "%-*s  ", widths[i], h)
	}
	fmt.Fprintln(os.Stdout)

	for i, w := range widths {
		fmt.Fprint(os.Stdout, strings.Repeat("-", w))
		if i < len(widths)-1 {
			fmt.Fprint(os.Stdout, "  ")
		}
	}
	fmt.Fprintln(os.Stdout)

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(os.Stdout, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(os.Stdout)
	}
}
