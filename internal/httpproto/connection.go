package httpproto

import (
	"bytes"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/sys/unix"

	"github.com/yourusername/reactord/internal/config"
)

var crlfcrlf = []byte("\r\n\r\n")

// Connection is the per-socket state for one accepted TCP peer: read/send
// buffers, the parsed request fields, and the keep-alive policy that
// governs recycling.
//
// Ownership: exactly one of {the reactor thread, a single worker} may touch
// a Connection's State, buffers, or parsed fields at any time. The reactor
// enforces this by disarming read/write interest before handing a
// Connection to a worker (Processing) and only resuming mutation once it
// has consumed that worker's wakeup record. Nothing in this type is
// synchronized internally — the handoff discipline is the lock.
type Connection struct {
	FD         int
	RemoteAddr string
	State      State

	readBuf  *bytebufferpool.ByteBuffer
	writeBuf *bytebufferpool.ByteBuffer
	Offset   int

	Method      string
	Path        string
	HTTPVersion string
	Headers     map[string]string
	Body        []byte

	KeepAlive        bool
	KeepAliveTimeout time.Duration
	MaxRequests      int
	HandledRequests  int

	LastActivity time.Time

	log *logrus.Entry
}

// New creates a Connection in ReadingRequest for a freshly accepted fd.
// KeepAlive starts true so a connection still waiting on its first request
// line survives a sweep tick; ParseHeaders overwrites it with whatever the
// request actually negotiates.
func New(fd int, remoteAddr string, cfg config.Config, log *logrus.Entry) *Connection {
	return &Connection{
		FD:               fd,
		RemoteAddr:       remoteAddr,
		State:            ReadingRequest,
		readBuf:          bytebufferpool.Get(),
		writeBuf:         bytebufferpool.Get(),
		KeepAlive:        true,
		KeepAliveTimeout: cfg.DefaultKeepAliveTimeout,
		MaxRequests:      cfg.DefaultMaxRequests,
		LastActivity:     time.Now(),
		log:              log.WithField("fd", fd),
	}
}

// Release returns pooled buffers. Called once, by the registry's Erase or
// Clear; the registry never closes the fd, its caller does.
func (c *Connection) Release() {
	bytebufferpool.Put(c.readBuf)
	bytebufferpool.Put(c.writeBuf)
	c.readBuf = nil
	c.writeBuf = nil
}

func (c *Connection) touch() {
	c.LastActivity = time.Now()
}

// AppendRead accumulates bytes received since the last request was
// dispatched.
func (c *Connection) AppendRead(b []byte) {
	c.readBuf.Write(b)
	c.touch()
}

// Recv issues one non-blocking read into buf. The reactor loops this
// until would-block, zero, or error; edge-triggered readiness demands
// draining every time.
func (c *Connection) Recv(buf []byte) (int, error) {
	return unix.Read(c.FD, buf)
}

// HeadersReceived reports whether read_buffer contains the header
// terminator CRLF CRLF.
func (c *Connection) HeadersReceived() bool {
	return bytes.Contains(c.readBuf.Bytes(), crlfcrlf)
}

// SetResponse installs a fully-formed response, transitions to
// WritingResponse, and resets the send offset.
func (c *Connection) SetResponse(resp []byte) {
	c.writeBuf.Reset()
	c.writeBuf.Write(resp)
	c.Offset = 0
	c.State = WritingResponse
	c.touch()
}

// SendOnce issues one non-blocking write of write_buffer[offset:]. On
// progress it advances offset and bumps activity; the reactor loops this
// until would-block, full completion, or error.
func (c *Connection) SendOnce() (int, error) {
	n, err := unix.Write(c.FD, c.writeBuf.B[c.Offset:])
	if n > 0 {
		c.Offset += n
		c.touch()
	}
	return n, err
}

// ResponseComplete reports offset >= len(write_buffer).
func (c *Connection) ResponseComplete() bool {
	return c.Offset >= c.writeBuf.Len()
}

// ShouldClose reports whether the connection must not serve another
// request: keep-alive declined, request budget exhausted, idle past the
// negotiated timeout, invalid fd, or already Closing.
func (c *Connection) ShouldClose(now time.Time) bool {
	if c.State == Closing {
		return true
	}
	if c.FD <= 0 {
		return true
	}
	if !c.KeepAlive {
		return true
	}
	if c.HandledRequests >= c.MaxRequests {
		return true
	}
	if c.KeepAliveTimeout > 0 && now.Sub(c.LastActivity) > c.KeepAliveTimeout {
		return true
	}
	return false
}

// HandleKeepAlive recycles the Connection for the next request: clears
// request-scoped fields, increments the handled-request counter, and
// transitions back to ReadingRequest. If the new count reaches
// MaxRequests, keep_alive is cleared so the next ShouldClose evaluation
// (the write path's check right after this recycle, or the next sweep)
// closes the connection instead of waiting for another request.
func (c *Connection) HandleKeepAlive() {
	c.readBuf.Reset()
	c.writeBuf.Reset()
	c.Offset = 0
	c.Method = ""
	c.Path = ""
	c.HTTPVersion = ""
	c.Headers = nil
	c.Body = nil

	c.HandledRequests++
	if c.HandledRequests >= c.MaxRequests {
		c.KeepAlive = false
	}
	c.State = ReadingRequest
	c.touch()
}

// Logger returns the per-connection structured log entry.
func (c *Connection) Logger() *logrus.Entry {
	return c.log
}
