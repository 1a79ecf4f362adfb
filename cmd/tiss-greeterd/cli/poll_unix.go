//go:build unix

package cli

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollStdin reports whether stdin (fd 0) has a byte available to read
// within timeout, without consuming it. The engine uses this to enforce its
// per-prompt timeout without giving up the ability to do a normal blocking
// line read afterwards.
func pollStdin(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: 0, Events: unix.POLLIN}}

	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}

	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}
