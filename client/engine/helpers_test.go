package engine

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testServer is an in-process TCP peer. handler owns the accepted connection.
type testServer struct {
	ln net.Listener
	wg sync.WaitGroup
}

func startTestServer(t *testing.T, handler func(net.Conn)) Target {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	return serveListener(t, ln, handler)
}

func serveListener(t *testing.T, ln net.Listener, handler func(net.Conn)) Target {
	t.Helper()

	srv := &testServer{ln: ln}

	srv.wg.Go(func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			srv.wg.Go(func() {
				defer conn.Close()

				handler(conn)
			})
		}
	})

	t.Cleanup(func() {
		_ = ln.Close()
		srv.wg.Wait()
	})

	addr := ln.Addr().(*net.TCPAddr)

	return Target{Host: "127.0.0.1", Port: addr.Port}
}

func echoHandler(conn net.Conn) {
	_, _ = io.Copy(conn, conn)
}

// closedTarget returns an address nobody listens on.
func closedTarget(t *testing.T) Target {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	return Target{Host: "127.0.0.1", Port: port}
}

func newTestConsole() (*Console, *bytes.Buffer) {
	out := &bytes.Buffer{}

	return NewConsole(&syncWriter{w: out}, nil, false, false), out
}

// syncWriter lets tests read a buffer that detached sessions may still write to.
type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
