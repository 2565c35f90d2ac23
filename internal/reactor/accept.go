//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"

	"github.com/yourusername/reactord/internal/httpproto"
)

// acceptLoop accepts until would-block. Each accepted fd is either handed
// to a new Connection or rejected and closed immediately; no accepted fd
// is ever left unowned.
func (r *Reactor) acceptLoop() {
	for {
		fd, sa, err := unix.Accept4(r.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			r.log.WithField("error", err).Error("accept4 failed")
			return
		}

		if r.reg.Size() >= r.cfg.MaxConnections {
			r.Stats.Rejected.Add(1)
			unix.Close(fd)
			r.log.WithField("max_connections", r.cfg.MaxConnections).Debug("connection cap reached, rejecting")
			continue
		}

		tuneAccepted(fd)

		conn := httpproto.New(fd, remoteAddrString(sa), r.cfg, r.log)
		r.reg.Insert(fd, conn)
		if err := r.epollAdd(fd, readWriteInterest); err != nil {
			r.reg.Erase(fd)
			unix.Close(fd)
			continue
		}
		r.Stats.Accepted.Add(1)
	}
}

func remoteAddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return ipPortString(a.Addr[:], a.Port)
	case *unix.SockaddrInet6:
		return ipPortString(a.Addr[:], a.Port)
	default:
		return "unknown"
	}
}
