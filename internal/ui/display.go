package ui

import (
	"os"

	"github.com/charmbracelet/x/term"
)

// TermWidth returns the width of the terminal on stdout, or 0 when stdout is
// not a terminal or its size is unknown.
func TermWidth() int {
	fd := os.Stdout.Fd()
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return 0
	}
	return w
}
