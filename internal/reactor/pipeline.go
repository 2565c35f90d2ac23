//go:build linux

package reactor

import (
	"time"

	"github.com/yourusername/reactord/internal/httpproto"
)

// requestPipeline parses the buffered request and installs the response.
// It runs on a worker goroutine, never the reactor goroutine: the reactor
// has already disarmed conn's read/write interest (keeping only hangup)
// before enqueueing this task, so conn is exclusively owned here until
// Notify publishes the wakeup record that hands it back.
func (r *Reactor) requestPipeline(conn *httpproto.Connection, fd int) {
	start := time.Now()

	var resp []byte
	if err := conn.ParseHeaders(); err != nil {
		r.Stats.ParseErrors.Add(1)
		conn.Logger().WithField("error", err).Debug("request parse failed, synthesizing 400")
		resp = httpproto.BadRequest()
	} else {
		resp = httpproto.OK(conn.Path)
	}

	conn.SetResponse(resp)

	conn.Logger().WithField("latency_us", time.Since(start).Microseconds()).
		WithField("path", conn.Path).Debug("request processed")

	if short, err := r.wake.Notify(fd, writeOnlyInterest); err != nil {
		conn.Logger().WithField("error", err).Error("wakeup notify failed")
	} else if short {
		conn.Logger().Warn("short wakeup write")
	}
}
