// Package config holds the process-wide knobs for the reactor, the worker
// pool, and the connections they manage.
package config

import "time"

// Config collects every tunable named in the server's external interface.
// It is a struct-of-knobs, not a generic loader: parsing it from flags or
// environment is cmd/reactord's job, not this package's.
type Config struct {
	// ListenAddr is the TCP address the listening socket binds to.
	ListenAddr string

	// ListenBacklog is the backlog passed to listen(2).
	ListenBacklog int

	// MaxEvents bounds how many epoll events are retrieved per Wait call.
	MaxEvents int

	// MaxConnections caps the number of Connections the registry holds.
	// An accept beyond this limit is rejected and the fd closed immediately.
	MaxConnections int

	// CheckInterval is how often the reactor sweeps the registry for
	// timed-out or over-limit connections.
	CheckInterval time.Duration

	// PollTimeout bounds how long a single epoll_wait call may block,
	// so sweep latency stays bounded even under low traffic.
	PollTimeout time.Duration

	// ReadBufferSize is the size of the buffer the read path allocates for
	// its non-blocking recv calls.
	ReadBufferSize int

	// PoolSize is the number of worker goroutines draining the task queue.
	// Zero means "use runtime.GOMAXPROCS(0)".
	PoolSize int

	// DefaultMaxRequests is the max-requests-per-connection ceiling applied
	// when a client does not negotiate one via a Keep-Alive header.
	DefaultMaxRequests int

	// DefaultKeepAliveTimeout is the idle timeout applied when a client does
	// not negotiate one via a Keep-Alive header. Zero/negative disables the
	// idle check entirely: a keep-alive connection that never negotiated a
	// timeout is allowed to idle forever.
	DefaultKeepAliveTimeout time.Duration
}

// DefaultConfig returns the stock knob values for a single-machine
// deployment.
func DefaultConfig() Config {
	return Config{
		ListenAddr:              ":8080",
		ListenBacklog:           128,
		MaxEvents:               1024,
		MaxConnections:          100,
		CheckInterval:           time.Second,
		PollTimeout:             10 * time.Millisecond,
		ReadBufferSize:          4096,
		PoolSize:                0,
		DefaultMaxRequests:      10,
		DefaultKeepAliveTimeout: 0,
	}
}
