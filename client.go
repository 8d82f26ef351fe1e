package flowio

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/uole/flowio/pkg/transport"
	"github.com/uole/flowio/pkg/transport/kcp"
	"github.com/uole/flowio/pkg/transport/quic"
	"github.com/uole/flowio/pkg/transport/tcp"
)

type (
	DialOption func(o *DialOptions)

	DialOptions struct {
		Secret   []byte
		Compress bool
		Attempts uint
	}
)

func WithSecret(key []byte) DialOption {
	return func(o *DialOptions) {
		o.Secret = key
	}
}

func WithCompress() DialOption {
	return func(o *DialOptions) {
		o.Compress = true
	}
}

func WithAttempts(n uint) DialOption {
	return func(o *DialOptions) {
		o.Attempts = n
	}
}

// Dial connects to a relay over the named transport and wraps the handle
// into a Flow. Transient dial failures are retried with backoff.
func Dial(ctx context.Context, proto, addr string, cbs ...DialOption) (fl *Flow, err error) {
	var (
		handle transport.Handle
	)
	opts := &DialOptions{Attempts: 3}
	for _, cb := range cbs {
		cb(opts)
	}
	if err = retry.Do(func() (er error) {
		switch proto {
		case protoQUIC:
			handle, er = quic.Dial(ctx, addr)
		case protoKCP:
			handle, er = kcp.Dial(ctx, addr, func(o *kcp.Options) {
				o.Key = opts.Secret
			})
		default:
			if opts.Compress {
				handle, er = tcp.Dial(ctx, addr, tcp.WithCompress())
			} else {
				handle, er = tcp.Dial(ctx, addr)
			}
		}
		return
	},
		retry.Attempts(opts.Attempts),
		retry.Context(ctx),
	); err != nil {
		return
	}
	return Connect(handle), nil
}

// OpenProxy asks the relay on the other end of fl to connect to host and
// waits for its verdict. On success the flow carries raw payload from here
// on.
func OpenProxy(fl *Flow, host string, timeout time.Duration) (err error) {
	var (
		payload []byte
	)
	if payload, err = json.Marshal(&ProxyRequest{Host: host, Timeout: timeout}); err != nil {
		return
	}
	if err = fl.Write(payload); err != nil {
		return
	}
	if payload, err = fl.Read(); err != nil {
		return
	}
	res := &ProxyResponse{}
	if err = json.Unmarshal(payload, res); err != nil {
		return
	}
	if !res.Success {
		err = errors.New(res.Reason)
	}
	return
}
