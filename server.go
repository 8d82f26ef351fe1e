package flowio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"git.nspix.com/golang/kos/pkg/log"
	"git.nspix.com/golang/kos/util/env"
	"github.com/rs/xid"
	"github.com/sourcegraph/conc"
	"github.com/uole/flowio/config"
	"github.com/uole/flowio/pkg/transport"
	"github.com/uole/flowio/pkg/transport/kcp"
	"github.com/uole/flowio/pkg/transport/quic"
	"github.com/uole/flowio/pkg/transport/tcp"
	"golang.org/x/sync/errgroup"
)

var (
	defaultTimeout = time.Second * 5
)

const (
	protoQUIC = "quic"
	protoKCP  = "kcp"
	protoTCP  = "tcp"
)

// Server relays flows to the upstream each peer asks for: the first logical
// message on an accepted flow is a ProxyRequest, everything after the
// ProxyResponse is payload piped to the dialed host.
type Server struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
	Uptime     time.Time
	cfg        *config.Config
	info       *NodeInfo
	dialer     net.Dialer
	listeners  []transport.Listener
	waitGroup  conc.WaitGroup
	mutex      sync.RWMutex
	sessions   map[string]*session
}

func (svr *Server) secretKey() []byte {
	return []byte(env.Get("FLOWIO_SECRET", svr.cfg.Secret))
}

func (svr *Server) listen(ep config.Endpoint) (transport.Listener, error) {
	switch ep.Proto {
	case protoQUIC:
		return quic.Listen(ep.Address)
	case protoKCP:
		return kcp.Listen(ep.Address, func(opts *kcp.Options) {
			opts.Key = svr.secretKey()
		})
	default:
		if ep.Compress {
			return tcp.Listen(ep.Address, tcp.WithCompress())
		}
		return tcp.Listen(ep.Address)
	}
}

func (svr *Server) getSessionSnapshot() []SessionInfo {
	svr.mutex.RLock()
	defer svr.mutex.RUnlock()
	ss := make([]SessionInfo, 0, len(svr.sessions))
	for _, sess := range svr.sessions {
		ss = append(ss, sess.Info())
	}
	return ss
}

func (svr *Server) putSession(sess *session) {
	svr.mutex.Lock()
	defer svr.mutex.Unlock()
	svr.sessions[sess.id] = sess
}

func (svr *Server) removeSession(sess *session) {
	svr.mutex.Lock()
	defer svr.mutex.Unlock()
	delete(svr.sessions, sess.id)
}

// process answers the proxy handshake on a freshly accepted flow and, when
// the upstream dial succeeds, pipes the two ends until either side is done.
func (svr *Server) process(handle io.ReadWriteCloser) {
	var (
		err      error
		payload  []byte
		upstream net.Conn
	)
	fl := Connect(handle)
	req := &ProxyRequest{}
	if payload, err = fl.Read(); err != nil {
		_ = fl.Close()
		return
	}
	if err = json.Unmarshal(payload, req); err != nil {
		log.Debugf("server: malformed proxy request: %s", err.Error())
		_ = fl.Close()
		return
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	res := &ProxyResponse{Host: req.Host}
	ctx, cancelFunc := context.WithTimeout(svr.ctx, timeout)
	upstream, err = svr.dialer.DialContext(ctx, "tcp", req.Host)
	cancelFunc()
	if err != nil {
		res.Reason = err.Error()
		payload, _ = json.Marshal(res)
		_ = fl.Write(payload)
		_ = fl.Close()
		log.Debugf("server: dial %s error: %s", req.Host, err.Error())
		return
	}
	res.Success = true
	payload, _ = json.Marshal(res)
	if err = fl.Write(payload); err != nil {
		_ = upstream.Close()
		_ = fl.Close()
		return
	}
	sess := newSession(xid.New().String(), req.Host, fl, upstream)
	svr.putSession(sess)
	defer svr.removeSession(sess)
	sess.serve()
}

func (svr *Server) acceptLoop(l transport.Listener) error {
	for {
		if handle, err := l.Accept(svr.ctx); err != nil {
			return err
		} else {
			svr.waitGroup.Go(func() {
				svr.process(handle)
			})
		}
	}
}

func (svr *Server) serve() {
	eg := &errgroup.Group{}
	for _, l := range svr.listeners {
		l := l
		eg.Go(func() error {
			return svr.acceptLoop(l)
		})
	}
	if err := eg.Wait(); err != nil {
		log.Debugf("server: accept loop finished: %s", err.Error())
	}
}

func (svr *Server) initialization() (err error) {
	svr.info.ID = xid.New().String()
	svr.info.OS = runtime.GOOS
	svr.info.Name, _ = os.Hostname()
	for _, ep := range svr.cfg.Listeners {
		l, err := svr.listen(ep)
		if err != nil {
			return fmt.Errorf("listen %s %s: %w", ep.Proto, ep.Address, err)
		}
		log.Infof("server: listening on %s (%s)", l.Addr().String(), ep.Proto)
		svr.listeners = append(svr.listeners, l)
	}
	return
}

func (svr *Server) Start(ctx context.Context) (err error) {
	svr.ctx, svr.cancelFunc = context.WithCancel(ctx)
	if err = svr.initialization(); err != nil {
		return
	}
	svr.routes()
	svr.waitGroup.Go(svr.serve)
	return
}

func (svr *Server) Stop() (err error) {
	svr.cancelFunc()
	for _, l := range svr.listeners {
		err = l.Close()
	}
	svr.mutex.RLock()
	defer svr.mutex.RUnlock()
	for _, sess := range svr.sessions {
		err = sess.close()
	}
	return
}

func New(cfg *config.Config) *Server {
	svr := &Server{
		cfg:      cfg,
		info:     &NodeInfo{Uptime: time.Now()},
		Uptime:   time.Now(),
		sessions: make(map[string]*session),
	}
	return svr
}
