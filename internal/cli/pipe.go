package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// pipeFormatOverride stores explicit --pipe/--no-pipe flag values.
// nil means use auto-detection.
var pipeFormatOverride *bool

// SetPipeFormat sets an explicit pipe format override.
// Pass nil to use auto-detection.
func SetPipeFormat(usePipe *bool) {
	pipeFormatOverride = usePipe
}

// IsPipedOutput returns true if stdout is being piped (not a TTY).
func IsPipedOutput() bool {
	fd := os.Stdout.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// ShouldUsePipeFormat returns true if output should use pipe-friendly format.
// Priority: explicit --pipe/--no-pipe flag > auto-detection based on TTY.
// JSON output mode always returns false (JSON has its own format).
func ShouldUsePipeFormat() bool {
	if isJSONOutput() {
		return false
	}
	if pipeFormatOverride != nil {
		return *pipeFormatOverride
	}
	return IsPipedOutput()
}

// writePipeRows writes one tab-separated line per row. Tabs and newlines
// inside fields are replaced with spaces so every row stays on one line.
func writePipeRows(w io.Writer, rows [][]string) {
	for _, row := range rows {
		fields := make([]string, len(row))
		for i, f := range row {
			f = strings.ReplaceAll(f, "\t", " ")
			fields[i] = strings.ReplaceAll(f, "\n", " ")
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
}
