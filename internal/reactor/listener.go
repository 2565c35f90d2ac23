//go:build linux

package reactor

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// newListener creates the non-blocking listening socket: SO_REUSEADDR,
// bind, listen with the configured backlog. Single acceptor only; there
// is no SO_REUSEPORT multi-acceptor scaling.
func newListener(addr string, backlog int) (int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen port %q: %w", portStr, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	var ip [4]byte
	if host != "" {
		parsed := net.ParseIP(host).To4()
		if parsed == nil {
			unix.Close(fd)
			return 0, fmt.Errorf("invalid listen host %q (IPv4 only)", host)
		}
		copy(ip[:], parsed)
	}

	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("bind: %w", err)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("listen: %w", err)
	}

	return fd, nil
}

func ipPortString(addr []byte, port int) string {
	ip := net.IP(addr)
	return net.JoinHostPort(ip.String(), strconv.Itoa(port))
}
