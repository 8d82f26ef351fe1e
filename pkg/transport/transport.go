package transport

import (
	"context"
	"io"
	"net"
)

// A handle is any already-connected, reliable, bidirectional byte stream.
// Listeners hand them out one per accepted peer; the flow layer takes
// exclusive ownership from there.
type (
	Handle = io.ReadWriteCloser

	Listener interface {
		Accept(ctx context.Context) (Handle, error)
		Addr() net.Addr
		Close() (err error)
	}
)
