// Package terminal puts the controlling terminal into single keystroke mode
// and reports its size.
package terminal

import (
	"sync"

	"github.com/charmbracelet/x/term"
)

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(fd)
}

// Size returns the width and height of the terminal behind fd.
func Size(fd uintptr) (cols, rows int, err error) {
	return term.GetSize(fd)
}

// once makes a restore function safe to call from both a deferred call and
// a signal path.
func once(restore func() error) func() error {
	var (
		o   sync.Once
		err error
	)
	return func() error {
		o.Do(func() { err = restore() })
		return err
	}
}
