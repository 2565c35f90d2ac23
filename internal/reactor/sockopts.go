//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// tuneAccepted sets per-connection socket options directly on the raw
// accept4 fd; the reactor never wraps its sockets in net.Conn, so there
// is no SyscallConn plumbing to go through. TCP_NODELAY matters here:
// responses are one small write, and Nagle's algorithm would sit on it
// waiting for more data that never comes.
func tuneAccepted(fd int) {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
}
