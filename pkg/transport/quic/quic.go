package quic

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/uole/flowio/pkg/transport"
)

const nextProto = "flowio"

func init() {
	os.Setenv("QUIC_GO_DISABLE_RECEIVE_BUFFER_WARNING", "true")
	os.Setenv("QUIC_GO_LOG_LEVEL", "error")
}

type (
	Listener struct {
		l *quic.Listener
	}

	// streamConn pins one bidirectional stream to its connection so that
	// closing the handle tears both down.
	streamConn struct {
		quic.Stream
		conn quic.Connection
	}
)

func (s *streamConn) Close() error {
	s.Stream.CancelRead(0)
	err := s.Stream.Close()
	_ = s.conn.CloseWithError(0, "done")
	return err
}

func (l *Listener) Accept(ctx context.Context) (transport.Handle, error) {
	var (
		err    error
		conn   quic.Connection
		stream quic.Stream
	)
	if conn, err = l.l.Accept(ctx); err != nil {
		return nil, err
	}
	if stream, err = conn.AcceptStream(ctx); err != nil {
		_ = conn.CloseWithError(0, err.Error())
		return nil, err
	}
	return &streamConn{Stream: stream, conn: conn}, nil
}

func (l *Listener) Addr() net.Addr {
	return l.l.Addr()
}

func (l *Listener) Close() (err error) {
	return l.l.Close()
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:        time.Second * 80,
		MaxIncomingStreams:    1024,
		MaxIncomingUniStreams: 1024,
	}
}

func Listen(addr string) (transport.Listener, error) {
	var (
		err    error
		cert   tls.Certificate
		listen *quic.Listener
	)
	if cert, err = selfSignedCert(); err != nil {
		return nil, err
	}
	if listen, err = quic.ListenAddr(addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{nextProto},
	}, quicConfig()); err != nil {
		return nil, err
	}
	return &Listener{l: listen}, nil
}

func Dial(ctx context.Context, addr string) (transport.Handle, error) {
	var (
		err    error
		conn   quic.Connection
		stream quic.Stream
	)
	if conn, err = quic.DialAddr(ctx, addr, &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{nextProto},
	}, quicConfig()); err != nil {
		return nil, err
	}
	if stream, err = conn.OpenStreamSync(ctx); err != nil {
		_ = conn.CloseWithError(0, err.Error())
		return nil, err
	}
	return &streamConn{Stream: stream, conn: conn}, nil
}

func selfSignedCert() (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(24 * time.Hour * 365),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
