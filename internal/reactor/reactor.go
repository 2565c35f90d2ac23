//go:build linux

// Package reactor implements the single-threaded epoll event loop at the
// core of the server: it owns the demultiplexer and every mutation of
// interest masks and Connection state while a Connection is
// ReadingRequest or WritingResponse, handing Connections to the worker
// pool for the Processing state in between.
package reactor

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/yourusername/reactord/internal/config"
	"github.com/yourusername/reactord/internal/httpproto"
	"github.com/yourusername/reactord/internal/registry"
	"github.com/yourusername/reactord/internal/wakeup"
	"github.com/yourusername/reactord/internal/workerpool"
)

const (
	readWriteInterest  = unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLET
	writeOnlyInterest  = unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLET
	hangupOnlyInterest = unix.EPOLLRDHUP | unix.EPOLLET
)

// Stats holds cumulative accept/request counters. Counters are atomic so
// worker goroutines can bump ParseErrors while the reactor bumps the rest.
type Stats struct {
	Accepted    atomic.Uint64
	Rejected    atomic.Uint64
	Completed   atomic.Uint64
	ParseErrors atomic.Uint64
}

// Reactor owns the epoll instance, the listening socket, the wakeup
// channel, the connection registry, and the worker pool.
type Reactor struct {
	cfg config.Config
	log *logrus.Entry

	epfd     int
	listenFD int
	wake     *wakeup.Channel
	reg      *registry.Registry
	pool     *workerpool.Pool

	lastSweep time.Time
	running   atomic.Bool

	Stats Stats
}

// New creates the epoll instance, binds and registers the listening
// socket, and registers the wakeup channel's read end, all edge-triggered.
// Any failure here aborts startup; there is no degraded mode without a
// demultiplexer or notifier.
func New(cfg config.Config, log *logrus.Entry) (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}

	listenFD, err := newListener(cfg.ListenAddr, cfg.ListenBacklog)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("reactor: listen: %w", err)
	}

	wake, err := wakeup.New()
	if err != nil {
		unix.Close(listenFD)
		unix.Close(epfd)
		return nil, fmt.Errorf("reactor: wakeup channel: %w", err)
	}

	r := &Reactor{
		cfg:       cfg,
		log:       log,
		epfd:      epfd,
		listenFD:  listenFD,
		wake:      wake,
		reg:       registry.New(),
		lastSweep: time.Now(),
	}

	if err := r.epollAdd(listenFD, unix.EPOLLIN|unix.EPOLLET); err != nil {
		r.closeDescriptors()
		return nil, fmt.Errorf("reactor: register listener: %w", err)
	}
	if err := r.epollAdd(wake.ReadFD(), unix.EPOLLIN|unix.EPOLLET); err != nil {
		r.closeDescriptors()
		return nil, fmt.Errorf("reactor: register wakeup channel: %w", err)
	}

	r.pool = workerpool.New(cfg.PoolSize, log)
	return r, nil
}

func (r *Reactor) closeDescriptors() {
	unix.Close(r.listenFD)
	unix.Close(r.epfd)
	r.wake.Close()
}

func (r *Reactor) epollAdd(fd int, events uint32) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (r *Reactor) epollMod(fd int, events uint32) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (r *Reactor) epollDel(fd int) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Run executes the event loop until Shutdown is called. It blocks the
// calling goroutine; callers run it on its own goroutine and treat that
// goroutine as "the reactor thread" — all interest-mask and Connection
// mutations outside the worker handoff happen here.
func (r *Reactor) Run() error {
	r.running.Store(true)
	events := make([]unix.EpollEvent, r.cfg.MaxEvents)
	timeoutMS := int(r.cfg.PollTimeout / time.Millisecond)
	if timeoutMS <= 0 {
		timeoutMS = 1
	}

	for r.running.Load() {
		if time.Since(r.lastSweep) >= r.cfg.CheckInterval {
			r.sweep()
			r.lastSweep = time.Now()
		}

		n, err := unix.EpollWait(r.epfd, events, timeoutMS)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("reactor: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			r.dispatch(events[i])
		}
	}
	return nil
}

func (r *Reactor) dispatch(ev unix.EpollEvent) {
	fd := int(ev.Fd)

	switch fd {
	case r.wake.ReadFD():
		r.drainWakeups()
		return
	case r.listenFD:
		r.acceptLoop()
		return
	}

	conn := r.reg.Get(fd)
	if conn == nil {
		return
	}

	if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0 {
		r.closeConnection(conn, "peer hangup or error")
		return
	}

	if !r.readPath(conn) {
		return // closed, or handed to a worker; conn is no longer ours
	}
	r.writePath(conn)
}

// drainWakeups consumes every pending record off the wakeup channel and,
// for each Connection still in the registry, arms write interest. This is
// the acquire side of the worker handoff: after the MOD the reactor owns
// the Connection again.
func (r *Reactor) drainWakeups() {
	for {
		rec, ok, err := r.wake.Read()
		if err != nil {
			r.log.WithField("error", err).Error("wakeup channel read error")
			return
		}
		if !ok {
			return
		}
		conn := r.reg.Get(int(rec.FD))
		if conn == nil {
			continue // late wakeup for an already-destroyed fd; dropped
		}
		if err := r.epollMod(conn.FD, writeOnlyInterest); err != nil {
			r.closeConnection(conn, "epoll_mod to write-ready failed")
		}
	}
}

// Shutdown sets the running flag false, closes the demultiplexer and
// listening socket, closes every client fd and clears the registry, and
// stops the worker pool. The registry never closes fds itself, so the
// fds are collected and closed here first, mirroring sweep's
// collect-then-close pattern. The registry is cleared before the pool is
// joined: a task already in flight still holds its Connection pointer,
// but any late wakeup after clearing finds nothing and is dropped. The
// wakeup pipe closes last, after every worker has joined.
func (r *Reactor) Shutdown() {
	r.running.Store(false)
	unix.Close(r.listenFD)
	unix.Close(r.epfd)

	var fds []int
	r.reg.ForEach(func(fd int, conn *httpproto.Connection) {
		fds = append(fds, fd)
	})
	for _, fd := range fds {
		unix.Close(fd)
	}
	r.reg.Clear()

	r.pool.Stop()
	r.wake.Close()
}

func (r *Reactor) closeConnection(conn *httpproto.Connection, reason string) {
	conn.State = httpproto.Closing
	r.log.WithField("fd", conn.FD).WithField("reason", reason).Debug("closing connection")
	_ = r.epollDel(conn.FD)
	unix.Close(conn.FD)
	r.reg.Erase(conn.FD)
}
