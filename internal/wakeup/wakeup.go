// Package wakeup implements the one-way, non-blocking notification channel
// workers use to hand a finished response back to the reactor thread.
// It is a self-pipe: the reactor epolls the read end alongside client
// sockets, so readiness and wakeups are demultiplexed by the same wait
// call with no extra condition variables on the reactor side.
package wakeup

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// recordSize is the byte-granular framing unit: a 4-byte fd and a 4-byte
// event mask, written and read whole or not at all.
const recordSize = 8

// Record is a {fd, events} pair published by a worker and consumed by the
// reactor.
type Record struct {
	FD     int32
	Events uint32
}

// Channel is a non-blocking pipe(2) carrying Records.
type Channel struct {
	readFD  int
	writeFD int
}

// New creates a non-blocking pipe. Failure here aborts startup: the
// reactor cannot run without its notifier.
func New() (*Channel, error) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	return &Channel{readFD: fds[0], writeFD: fds[1]}, nil
}

// ReadFD returns the descriptor the reactor registers for readable events.
func (c *Channel) ReadFD() int {
	return c.readFD
}

// Notify publishes one Record. A would-block on the producer side is
// tolerated silently — wakeups are idempotent because the reactor always
// re-queries the latest Connection state when it processes one. A short
// write is reported as short=true and logged by the caller as a warning;
// it should never happen since recordSize is far below PIPE_BUF.
func (c *Channel) Notify(fd int, events uint32) (short bool, err error) {
	var buf [recordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(fd))
	binary.LittleEndian.PutUint32(buf[4:8], events)

	n, err := unix.Write(c.writeFD, buf[:])
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, err
	}
	if n != recordSize {
		return true, nil
	}
	return false, nil
}

// Read consumes one Record. ok is false once the pipe is drained
// (EAGAIN/EWOULDBLOCK); callers loop calling Read until ok is false.
func (c *Channel) Read() (rec Record, ok bool, err error) {
	var buf [recordSize]byte
	n, rerr := unix.Read(c.readFD, buf[:])
	if rerr != nil {
		if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
			return Record{}, false, nil
		}
		return Record{}, false, rerr
	}
	if n == 0 {
		return Record{}, false, nil
	}
	if n != recordSize {
		// A short read would desynchronize framing for every record
		// after it; treat it as fatal rather than guess at recovery.
		return Record{}, false, unix.EIO
	}
	rec.FD = int32(binary.LittleEndian.Uint32(buf[0:4]))
	rec.Events = binary.LittleEndian.Uint32(buf[4:8])
	return rec, true, nil
}

// Close closes both ends of the pipe. Called during shutdown, after
// every worker has joined.
func (c *Channel) Close() {
	unix.Close(c.readFD)
	unix.Close(c.writeFD)
}
