package flowio

import (
	"io"
	"sync"
	"sync/atomic"

	"git.nspix.com/golang/kos/pkg/log"
	"git.nspix.com/golang/kos/util/pool"
	"github.com/uole/flowio/pkg/frame"
)

// Flow frames logical reads and writes onto one bidirectional byte
// stream. It owns the handle exclusively and releases it exactly once, after
// the close handshake completes or fails. Every transport failure collapses
// to io.EOF; callers never see the underlying cause.
//
// One logical reader and one logical writer may proceed independently; the
// two directions are serialized by separate locks and never against each
// other.
type Flow struct {
	handle    io.ReadWriteCloser
	rmu       sync.Mutex
	wmu       sync.Mutex
	rhead     []byte
	whead     []byte
	rbuf      []byte
	leftover  []byte
	closeFlag int32
	readFlag  int32
	writeFlag int32
}

// Connect wraps an already-connected transport handle into a Flow.
func Connect(handle io.ReadWriteCloser) *Flow {
	// per-flow buffers are not pooled: a payload slice handed out by Read
	// and a reader blocked mid-frame both outlive Close, so these must
	// never be recycled under them
	return &Flow{
		handle: handle,
		rhead:  make([]byte, frame.HeaderSize),
		whead:  make([]byte, frame.HeaderSize),
		rbuf:   make([]byte, frame.MaxChunkSize),
	}
}

// reallyRead fills buf completely or reports io.EOF. Bytes delivered
// alongside a terminal error still count: a read may return the final
// bytes of a stream together with the error, and a header or payload
// completed that way is a completed read.
func reallyRead(r io.Reader, buf []byte) error {
	for n := 0; n < len(buf); {
		nr, err := r.Read(buf[n:])
		n += nr
		if n == len(buf) {
			return nil
		}
		if err != nil || nr == 0 {
			return io.EOF
		}
	}
	return nil
}

// reallyWrite drains buf completely or reports io.EOF.
func reallyWrite(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil || n == 0 {
			return io.EOF
		}
		buf = buf[n:]
	}
	return nil
}

func (f *Flow) isClosed() bool {
	return atomic.LoadInt32(&f.closeFlag) == 1
}

func (f *Flow) writeChunk(p []byte) (err error) {
	f.wmu.Lock()
	defer f.wmu.Unlock()
	frame.Marshal(frame.Data(len(p)), f.whead)
	if err = reallyWrite(f.handle, f.whead); err != nil {
		return
	}
	return reallyWrite(f.handle, p)
}

// Write sends p as a sequence of Data frames of at most frame.MaxChunkSize
// payload bytes each. It returns io.EOF without touching the transport if
// the flow or its write half is already closed, and aborts on the first
// failed frame; retries belong to the caller.
func (f *Flow) Write(p []byte) (err error) {
	if f.isClosed() || atomic.LoadInt32(&f.writeFlag) == 1 {
		return io.EOF
	}
	for len(p) > 0 {
		n := len(p)
		if n > frame.MaxChunkSize {
			n = frame.MaxChunkSize
		}
		if err = f.writeChunk(p[:n]); err != nil {
			return
		}
		p = p[n:]
	}
	return
}

// Writev applies Write to each buffer in order, short-circuiting on the
// first io.EOF.
func (f *Flow) Writev(bufs [][]byte) (err error) {
	for _, p := range bufs {
		if err = f.Write(p); err != nil {
			return
		}
	}
	return
}

// readNextChunk reads frames under the read lock until it can hand back a
// Data payload or the stream is over for this direction. The returned slice
// aliases the flow's chunk buffer and is valid until the next read.
func (f *Flow) readNextChunk() ([]byte, error) {
	for {
		if err := reallyRead(f.handle, f.rhead); err != nil {
			return nil, io.EOF
		}
		switch fr := frame.Unmarshal(f.rhead); fr.Kind {
		case frame.KindShutdownWrite:
			// peer stopped writing; nothing more to read
			atomic.StoreInt32(&f.readFlag, 1)
			return nil, io.EOF
		case frame.KindClose:
			_ = f.Close()
			return nil, io.EOF
		case frame.KindShutdownRead:
			// peer stopped reading; our writes are pointless now
			atomic.StoreInt32(&f.writeFlag, 1)
		default:
			if int64(fr.Length) > frame.MaxChunkSize {
				return nil, io.EOF
			}
			buf := f.rbuf[:fr.Length]
			if err := reallyRead(f.handle, buf); err != nil {
				return nil, io.EOF
			}
			return buf, nil
		}
	}
}

// Read returns the next logical payload. Bytes left over from a previous
// ReadInto are delivered first, without touching the transport. The returned
// slice is valid until the next read on this flow.
func (f *Flow) Read() (p []byte, err error) {
	if f.isClosed() {
		return nil, io.EOF
	}
	if len(f.leftover) > 0 {
		p, f.leftover = f.leftover, nil
		return
	}
	if atomic.LoadInt32(&f.readFlag) == 1 {
		return nil, io.EOF
	}
	f.rmu.Lock()
	defer f.rmu.Unlock()
	return f.readNextChunk()
}

// ReadInto fills p completely, pulling from the leftover buffer first and
// then from successive frames; excess bytes from the last frame are carried
// back into the leftover buffer for the next read.
func (f *Flow) ReadInto(p []byte) (err error) {
	if f.isClosed() {
		return io.EOF
	}
	for len(p) > 0 {
		if len(f.leftover) > 0 {
			n := copy(p, f.leftover)
			f.leftover = f.leftover[n:]
			p = p[n:]
			continue
		}
		if atomic.LoadInt32(&f.readFlag) == 1 {
			return io.EOF
		}
		f.rmu.Lock()
		chunk, er := f.readNextChunk()
		f.rmu.Unlock()
		if er != nil {
			return er
		}
		n := copy(p, chunk)
		if n < len(chunk) {
			f.leftover = chunk[n:]
		}
		p = p[n:]
	}
	return
}

// Control frames go out through the write side regardless of direction so
// they can never land inside a Data frame.
func (f *Flow) sendControl(kind frame.Kind) {
	f.wmu.Lock()
	defer f.wmu.Unlock()
	frame.Marshal(frame.Frame{Kind: kind}, f.whead)
	if err := reallyWrite(f.handle, f.whead); err != nil {
		log.Debugf("flow: %s notice not delivered", kind)
	}
}

// ShutdownWrite marks the write half closed and tells the peer no more data
// is coming. Best-effort; a failed send is not surfaced.
func (f *Flow) ShutdownWrite() {
	if f.isClosed() {
		return
	}
	if !atomic.CompareAndSwapInt32(&f.writeFlag, 0, 1) {
		return
	}
	f.sendControl(frame.KindShutdownWrite)
}

// ShutdownRead marks the read half closed and tells the peer to stop
// writing. Best-effort; a failed send is not surfaced.
func (f *Flow) ShutdownRead() {
	if f.isClosed() {
		return
	}
	if !atomic.CompareAndSwapInt32(&f.readFlag, 0, 1) {
		return
	}
	f.sendControl(frame.KindShutdownRead)
}

// drain consumes frames until the peer's own Close arrives or the stream
// ends, discarding Data payloads and ignoring shutdown notices. It runs
// outside the read lock: once closing begins every other caller fails fast
// on the closed flags instead of competing for the transport.
func (f *Flow) drain() {
	var head [frame.HeaderSize]byte
	buf := pool.GetBytes(frame.MaxChunkSize)
	defer pool.PutBytes(buf)
	for {
		if reallyRead(f.handle, head[:]) != nil {
			return
		}
		switch fr := frame.Unmarshal(head[:]); fr.Kind {
		case frame.KindClose:
			return
		case frame.KindData:
			remain := int64(fr.Length)
			for remain > 0 {
				n := remain
				if n > frame.MaxChunkSize {
					n = frame.MaxChunkSize
				}
				if reallyRead(f.handle, buf[:n]) != nil {
					return
				}
				remain -= n
			}
		}
	}
}

// Close performs the full close handshake: it sends a Close frame, waits
// until the peer's own Close (or end of stream) is observed, then releases
// the handle. The release happens exactly once on every exit path; a second
// Close is a no-op. The wait is unbounded; a peer that never answers stalls
// Close until the caller tears the handle down by other means.
func (f *Flow) Close() (err error) {
	if !atomic.CompareAndSwapInt32(&f.closeFlag, 0, 1) {
		return
	}
	atomic.StoreInt32(&f.readFlag, 1)
	atomic.StoreInt32(&f.writeFlag, 1)
	defer func() {
		err = f.handle.Close()
	}()
	f.wmu.Lock()
	frame.Marshal(frame.Frame{Kind: frame.KindClose}, f.whead)
	err = reallyWrite(f.handle, f.whead)
	f.wmu.Unlock()
	if err != nil {
		return
	}
	f.drain()
	return
}
