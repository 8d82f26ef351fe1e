package tcp

import (
	"context"
	"net"

	"github.com/golang/snappy"
	"github.com/uole/flowio/pkg/transport"
)

type (
	Option func(o *Options)

	Options struct {
		Compress bool
	}

	Listener struct {
		l    net.Listener
		opts *Options
	}
)

func WithCompress() Option {
	return func(o *Options) {
		o.Compress = true
	}
}

// compressedConn frames the byte stream through snappy, flushing after
// every write so a logical frame never sits in the encoder's buffer.
type compressedConn struct {
	conn net.Conn
	r    *snappy.Reader
	w    *snappy.Writer
}

func (c *compressedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *compressedConn) Write(p []byte) (n int, err error) {
	if n, err = c.w.Write(p); err != nil {
		return
	}
	err = c.w.Flush()
	return
}

func (c *compressedConn) Close() error {
	return c.conn.Close()
}

func newHandle(conn net.Conn, opts *Options) transport.Handle {
	if opts.Compress {
		return &compressedConn{
			conn: conn,
			r:    snappy.NewReader(conn),
			w:    snappy.NewBufferedWriter(conn),
		}
	}
	return conn
}

func (l *Listener) Accept(ctx context.Context) (transport.Handle, error) {
	if conn, err := l.l.Accept(); err != nil {
		return nil, err
	} else {
		return newHandle(conn, l.opts), nil
	}
}

func (l *Listener) Addr() net.Addr {
	return l.l.Addr()
}

func (l *Listener) Close() (err error) {
	return l.l.Close()
}

func Listen(addr string, cbs ...Option) (transport.Listener, error) {
	var (
		err    error
		listen net.Listener
	)
	opts := &Options{}
	for _, cb := range cbs {
		cb(opts)
	}
	if listen, err = net.Listen("tcp", addr); err != nil {
		return nil, err
	} else {
		return &Listener{l: listen, opts: opts}, nil
	}
}

func Dial(ctx context.Context, addr string, cbs ...Option) (transport.Handle, error) {
	var (
		err    error
		conn   net.Conn
		dialer net.Dialer
	)
	opts := &Options{}
	for _, cb := range cbs {
		cb(opts)
	}
	if conn, err = dialer.DialContext(ctx, "tcp", addr); err != nil {
		return nil, err
	} else {
		return newHandle(conn, opts), nil
	}
}
