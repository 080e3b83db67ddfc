package cliutil

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether f is an interactive terminal. No sqlflow
// subcommand calls it; `sqlflow list` renders its table whether or not
// stdout is a terminal.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
