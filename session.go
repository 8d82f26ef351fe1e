package flowio

import (
	"net"
	"time"

	"git.nspix.com/golang/kos/util/pool"
	"github.com/sourcegraph/conc"
	"github.com/uole/flowio/pkg/frame"
)

// session pipes one proxied flow to its upstream connection, propagating
// half-closes in both directions and finishing with the close handshake.
type session struct {
	id       string
	host     string
	opened   time.Time
	flow     *Flow
	upstream net.Conn
}

func (sess *session) Info() SessionInfo {
	return SessionInfo{
		ID:         sess.id,
		Host:       sess.host,
		OpenedTime: sess.opened,
	}
}

func (sess *session) uplink() {
	var (
		err     error
		payload []byte
	)
	for {
		if payload, err = sess.flow.Read(); err != nil {
			break
		}
		if _, err = sess.upstream.Write(payload); err != nil {
			break
		}
	}
	// the peer stopped sending; let the upstream see end-of-stream while
	// its responses keep flowing back
	if tc, ok := sess.upstream.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
}

func (sess *session) downlink() {
	var (
		n   int
		err error
	)
	buf := pool.GetBytes(frame.MaxChunkSize)
	defer pool.PutBytes(buf)
	for {
		n, err = sess.upstream.Read(buf)
		if n > 0 {
			if sess.flow.Write(buf[:n]) != nil {
				return
			}
		}
		if err != nil {
			sess.flow.ShutdownWrite()
			return
		}
	}
}

func (sess *session) serve() {
	var waitGroup conc.WaitGroup
	waitGroup.Go(sess.uplink)
	waitGroup.Go(sess.downlink)
	waitGroup.Wait()
	_ = sess.flow.Close()
	_ = sess.upstream.Close()
}

func (sess *session) close() (err error) {
	return sess.upstream.Close()
}

func newSession(id string, host string, flow *Flow, upstream net.Conn) *session {
	return &session{
		id:       id,
		host:     host,
		opened:   time.Now(),
		flow:     flow,
		upstream: upstream,
	}
}
