package kcp

import (
	"context"
	"net"

	"github.com/uole/flowio/internal/crypto"
	"github.com/uole/flowio/pkg/transport"
	kcp "github.com/xtaci/kcp-go"
)

type (
	Option func(o *Options)

	Options struct {
		Key []byte
	}

	Listener struct {
		l *kcp.Listener
	}
)

func WithKey(key []byte) Option {
	return func(o *Options) {
		o.Key = key
	}
}

func (l *Listener) Accept(ctx context.Context) (transport.Handle, error) {
	if conn, err := l.l.Accept(); err != nil {
		return nil, err
	} else {
		return conn, nil
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
		listen *kcp.Listener
	)
	opts := &Options{}
	for _, cb := range cbs {
		cb(opts)
	}
	block := crypto.NewXorBlockCrypt(opts.Key)
	if listen, err = kcp.ListenWithOptions(addr, block, 10, 3); err != nil {
		return nil, err
	} else {
		return &Listener{l: listen}, nil
	}
}

func Dial(ctx context.Context, addr string, cbs ...Option) (transport.Handle, error) {
	var (
		err  error
		conn net.Conn
	)
	opts := &Options{}
	for _, cb := range cbs {
		cb(opts)
	}
	block := crypto.NewXorBlockCrypt(opts.Key)
	if conn, err = kcp.DialWithOptions(addr, block, 10, 3); err != nil {
		return nil, err
	} else {
		return conn, nil
	}
}
