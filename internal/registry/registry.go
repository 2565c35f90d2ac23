// Package registry implements the thread-safe fd -> Connection map shared
// between the reactor thread and the worker pool.
package registry

import (
	"sync"

	"github.com/yourusername/reactord/internal/httpproto"
)

// Registry maps fd to owned *httpproto.Connection. Many concurrent
// readers or one writer may hold the lock at once. The reactor loop and
// Reactor.Shutdown (which runs on the caller's goroutine) both use it;
// workers hold their Connection pointer directly and never consult the
// registry.
type Registry struct {
	mu    sync.RWMutex
	conns map[int]*httpproto.Connection
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{conns: make(map[int]*httpproto.Connection)}
}

// Get performs a shared-read lookup. It returns nil if fd is not present,
// which is exactly what a late wakeup for an already-erased Connection
// observes.
func (r *Registry) Get(fd int) *httpproto.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[fd]
}

// Insert exclusively stores conn, replacing any prior entry for the same
// fd.
func (r *Registry) Insert(fd int, conn *httpproto.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[fd] = conn
}

// Erase exclusively removes and releases the Connection for fd, if any.
// Callers are responsible for closing the fd itself; the registry never
// touches file descriptors.
func (r *Registry) Erase(fd int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[fd]; ok {
		c.Release()
		delete(r.conns, fd)
	}
}

// Size returns the current connection count under a shared read lock.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Clear exclusively destroys every entry. Used during shutdown, after
// which any late Get finds nothing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for fd, c := range r.conns {
		c.Release()
		delete(r.conns, fd)
	}
}

// ForEach visits every (fd, conn) pair under a shared read lock. visit
// MUST NOT call Erase — the reactor's sweep collects victims into a local
// slice and erases them after ForEach returns, avoiding a lock upgrade.
func (r *Registry) ForEach(visit func(fd int, conn *httpproto.Connection)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for fd, c := range r.conns {
		visit(fd, c)
	}
}
