//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package terminal

import (
	"fmt"

	"github.com/charmbracelet/x/term"
)

// EnableCbreak falls back to raw mode where termios is not available.
func EnableCbreak(fd int) (func() error, error) {
	state, err := term.MakeRaw(uintptr(fd))
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}
	return once(func() error {
		return term.Restore(uintptr(fd), state)
	}), nil
}
