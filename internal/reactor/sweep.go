//go:build linux

package reactor

import (
	"time"

	"github.com/yourusername/reactord/internal/httpproto"
)

// sweep collects every timed-out or over-limit Connection under the
// registry's read lock, then closes each one after iteration finishes.
// ForEach forbids erasing mid-visit, so victims are buffered and removed
// afterward; no lock upgrade, no invalidation of the map being iterated.
func (r *Reactor) sweep() {
	now := time.Now()
	var victims []*httpproto.Connection

	r.reg.ForEach(func(fd int, conn *httpproto.Connection) {
		if conn.ShouldClose(now) {
			victims = append(victims, conn)
		}
	})

	for _, conn := range victims {
		r.closeConnection(conn, "sweep: timed out or over limit")
	}
}
