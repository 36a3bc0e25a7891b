package utils

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether f is attached to an interactive terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
