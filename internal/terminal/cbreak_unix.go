//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package terminal

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// EnableCbreak turns off echo and line buffering on fd so keystrokes are
// delivered one at a time. Signals keep working. The returned function
// restores the previous mode and may be called more than once.
func EnableCbreak(fd int) (func() error, error) {
	saved, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("failed to read terminal attributes: %w", err)
	}

	mode := *saved
	mode.Lflag &^= unix.ECHO | unix.ICANON
	mode.Cc[unix.VMIN] = 1
	mode.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &mode); err != nil {
		return nil, fmt.Errorf("failed to set terminal attributes: %w", err)
	}

	return once(func() error {
		return unix.IoctlSetTermios(fd, ioctlSetTermios, saved)
	}), nil
}
