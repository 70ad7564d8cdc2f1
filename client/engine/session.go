package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/croessner/echoprobe/client/definitions"
	errors2 "github.com/croessner/echoprobe/client/errors"
	"github.com/pires/go-proxyproto"
)

// Target is the address of the echo server under test.
type Target struct {
	Host string
	Port int
}

// Address returns host:port suitable for net.Dial.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// SessionOptions tune a single client session.
type SessionOptions struct {
	// Timeout bounds connect, send and receive. Zero means no deadline.
	Timeout time.Duration

	// BufferSize is the capacity of the single read per exchange.
	BufferSize int

	// ProxyProtocol sends a PROXY protocol v2 header right after connecting.
	ProxyProtocol bool
}

// Session is one logical client: connect, send, receive, close. The
// connection is owned by the session and is never shared or reused.
type Session struct {
	target Target
	opts   SessionOptions
	conn   net.Conn
}

// NewSession creates an unconnected session.
func NewSession(target Target, opts SessionOptions) *Session {
	if opts.BufferSize <= 0 {
		opts.BufferSize = definitions.DefaultReceiveBufferSize
	}

	return &Session{target: target, opts: opts}
}

// Connected reports whether the session currently owns an open connection.
func (s *Session) Connected() bool {
	return s.conn != nil
}

// Connect dials the target. Every failure, including a timeout, is returned
// as an *ExchangeError of kind KindConnectFailed.
func (s *Session) Connect(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	dialer := &net.Dialer{Timeout: s.opts.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", s.target.Address())
	if err != nil {
		return newExchangeError(KindConnectFailed, err)
	}

	if s.opts.ProxyProtocol {
		if err = writeProxyHeader(conn, s.opts.Timeout); err != nil {
			_ = conn.Close()

			return newExchangeError(KindConnectFailed, fmt.Errorf("proxy protocol header: %w", err))
		}
	}

	s.conn = conn

	return nil
}

func writeProxyHeader(conn net.Conn, timeout time.Duration) error {
	header := proxyproto.HeaderProxyFromAddrs(2, conn.LocalAddr(), conn.RemoteAddr())

	if timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	}

	_, err := header.WriteTo(conn)

	return err
}

// Send writes the complete payload or fails with KindSendFailed.
func (s *Session) Send(payload string) error {
	if s.conn == nil {
		return newExchangeError(KindSendFailed, errors2.ErrNotConnected)
	}

	if s.opts.Timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.Timeout))
	}

	// net.Conn.Write returns a non-nil error whenever fewer than len(b) bytes were written.
	if _, err := s.conn.Write([]byte(payload)); err != nil {
		return newExchangeError(KindSendFailed, err)
	}

	return nil
}

// Receive performs one bounded read and decodes it as UTF-8 text. A
// zero-length read yields KindPeerClosed. Network and decode errors yield
// KindReceiveFailed.
func (s *Session) Receive() (string, error) {
	if s.conn == nil {
		return "", newExchangeError(KindReceiveFailed, errors2.ErrNotConnected)
	}

	if s.opts.Timeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.Timeout))
	}

	buf := make([]byte, s.opts.BufferSize)

	n, err := s.conn.Read(buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return "", newExchangeError(KindPeerClosed, errors2.ErrPeerClosed)
		}

		return "", newExchangeError(KindReceiveFailed, err)
	}

	if !utf8.Valid(buf[:n]) {
		return "", newExchangeError(KindReceiveFailed, errors2.ErrInvalidUTF8)
	}

	return string(buf[:n]), nil
}

// Exchange sends payload, reads the echo and compares it byte for byte.
// Elapsed covers the time from the start of the send to the receipt of the response.
func (s *Session) Exchange(payload string) Exchange {
	x := Exchange{Size: len(payload)}

	start := time.Now()

	if err := s.Send(payload); err != nil {
		x.Kind, x.Err = KindOf(err), err

		return x
	}

	response, err := s.Receive()
	x.Elapsed = time.Since(start)

	if err != nil {
		x.Kind, x.Err = KindOf(err), err

		return x
	}

	if response != payload {
		x.Kind = KindMismatch
		x.Err = newExchangeError(KindMismatch, fmt.Errorf("%w: sent %d bytes, received %d bytes", errors2.ErrEchoMismatch, len(payload), len(response)))

		return x
	}

	x.Kind = KindSuccess

	return x
}

// Close releases the connection. It is idempotent and never fails, even for
// a session that was never connected.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}

	_ = s.conn.Close()
	s.conn = nil

	return nil
}
