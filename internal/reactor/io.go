//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"

	"github.com/yourusername/reactord/internal/httpproto"
)

// readPath drains readable bytes while conn is in ReadingRequest. It
// reports whether the reactor still owns conn afterwards: false means the
// connection was closed or handed to a worker, and the caller must not
// touch it again this iteration.
func (r *Reactor) readPath(conn *httpproto.Connection) bool {
	if conn.State != httpproto.ReadingRequest {
		return true
	}

	buf := make([]byte, r.cfg.ReadBufferSize)
	for {
		n, err := conn.Recv(buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return true
			}
			if err == unix.EINTR {
				continue
			}
			r.closeConnection(conn, "recv error")
			return false
		}
		if n == 0 {
			r.closeConnection(conn, "peer closed (zero-length read)")
			return false
		}

		conn.AppendRead(buf[:n])

		if conn.HeadersReceived() {
			r.dispatchToWorker(conn)
			return false // do not continue reading; the worker now owns conn
		}
	}
}

// dispatchToWorker performs the ReadingRequest -> Processing handoff:
// disarm read/write interest (keep hangup) and enqueue the request
// pipeline task. After this call, only the worker that runs the task may
// touch conn until its wakeup is consumed.
func (r *Reactor) dispatchToWorker(conn *httpproto.Connection) {
	conn.State = httpproto.Processing
	if err := r.epollMod(conn.FD, hangupOnlyInterest); err != nil {
		r.closeConnection(conn, "epoll_mod to hangup-only failed")
		return
	}

	fd := conn.FD
	if err := r.pool.Enqueue(func() { r.requestPipeline(conn, fd) }); err != nil {
		r.closeConnection(conn, "worker pool stopped")
	}
}

// writePath drains write_buffer[offset:] while conn is in
// WritingResponse; otherwise it is a no-op. On completion the connection
// is either recycled for keep-alive or closed.
func (r *Reactor) writePath(conn *httpproto.Connection) {
	if conn.State != httpproto.WritingResponse {
		return
	}

	for {
		n, err := conn.SendOnce()
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			r.closeConnection(conn, "send error")
			return
		}
		if n == 0 && !conn.ResponseComplete() {
			return
		}

		if conn.ResponseComplete() {
			r.Stats.Completed.Add(1)
			if !conn.KeepAlive || conn.ShouldClose(conn.LastActivity) {
				r.closeConnection(conn, "response complete, connection not reusable")
				return
			}
			conn.State = httpproto.KeepAliveWaiting
			conn.HandleKeepAlive()
			// Recycling may have exhausted the request budget; close now
			// rather than re-arming read interest and parsing a request
			// this connection is no longer allowed to answer.
			if conn.ShouldClose(conn.LastActivity) {
				r.closeConnection(conn, "request budget exhausted")
				return
			}
			if err := r.epollMod(conn.FD, readWriteInterest); err != nil {
				r.closeConnection(conn, "epoll_mod to read-ready failed")
			}
			return
		}
	}
}
