// File: internal/ui/term.go
// Brief: Terminal detection helpers.

package ui

import (
	"io"

	"golang.org/x/term"
)

type fdProvider interface {
	Fd() uintptr
}

func IsTerminalReader(r io.Reader) bool {
	v, ok := r.(fdProvider)
	return ok && term.IsTerminal(int(v.Fd()))
}

func IsTerminalWriter(w io.Writer) bool {
	v, ok := w.(fdProvider)
	return ok && term.IsTerminal(int(v.Fd()))
}
