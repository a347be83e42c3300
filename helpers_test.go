package relay

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Helper Functions
// =============================================================================

var errBoom = errors.New("boom")

// payload returns n deterministic, non-repeating-looking bytes.
func payload(n int) []byte {
	p := make([]byte, n)
	var x uint32 = 2463534242
	for i := range p {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		p[i] = byte(x)
	}
	return p
}

// tcpPair returns both ends of a loopback TCP connection. Both are closed
// when the test ends.
func tcpPair(t testing.TB) (*net.TCPConn, *net.TCPConn) {
	t.Helper()

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenTCP failed: %v", err)
	}
	defer ln.Close()

	type accepted struct {
		conn *net.TCPConn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		c, err := ln.AcceptTCP()
		ch <- accepted{c, err}
	}()

	client, err := net.DialTCP("tcp", nil, ln.Addr().(*net.TCPAddr))
	if err != nil {
		t.Fatalf("DialTCP failed: %v", err)
	}
	acc := <-ch
	if acc.err != nil {
		client.Close()
		t.Fatalf("AcceptTCP failed: %v", acc.err)
	}

	t.Cleanup(func() {
		client.Close()
		acc.conn.Close()
	})
	return client, acc.conn
}

// unixPair returns both ends of a stream unix socket connection.
func unixPair(t testing.TB) (*net.UnixConn, *net.UnixConn) {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "relay_sock_*.sock")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	sockPath := tmpfile.Name()
	tmpfile.Close()
	os.Remove(sockPath)
	t.Cleanup(func() { os.Remove(sockPath) })

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: sockPath, Net: "unix"})
	if err != nil {
		t.Fatalf("ListenUnix failed: %v", err)
	}
	defer ln.Close()

	type accepted struct {
		conn *net.UnixConn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		c, err := ln.AcceptUnix()
		ch <- accepted{c, err}
	}()

	client, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: sockPath, Net: "unix"})
	if err != nil {
		t.Fatalf("DialUnix failed: %v", err)
	}
	acc := <-ch
	if acc.err != nil {
		client.Close()
		t.Fatalf("AcceptUnix failed: %v", acc.err)
	}

	t.Cleanup(func() {
		client.Close()
		acc.conn.Close()
	})
	return client, acc.conn
}

// requireSplice skips tests that need the kernel zero-copy path.
func requireSplice(t testing.TB) {
	t.Helper()
	if !HostPlatform().Splice {
		t.Skip("splice(2) not available on this platform")
	}
}

// relayAsync starts Relay and returns a channel delivering its Result.
func relayAsync(a, b Endpoint, opts ...Option) <-chan Result {
	done := make(chan Result, 1)
	go func() { done <- Relay(a, b, opts...) }()
	return done
}

func waitResult(t testing.TB, done <-chan Result) Result {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(10 * time.Second):
		t.Fatalf("relay did not return")
		return Result{}
	}
}

// withZeroCopy replaces the fast path for one call.
func withZeroCopy(fn func(dst, src Endpoint, limit int64) (Outcome, bool)) Option {
	return func(c *config) { c.zeroCopy = fn }
}

// countingZeroCopy wraps the real fast path and counts attempts.
func countingZeroCopy(calls *atomic.Int32) Option {
	return withZeroCopy(func(dst, src Endpoint, limit int64) (Outcome, bool) {
		calls.Add(1)
		return spliceTo(dst, src, limit)
	})
}

// memEndpoint is an in-memory endpoint: reads come from r, writes go to w.
// Its capability can be overridden to make the negotiator say yes.
type memEndpoint struct {
	r   io.Reader
	w   io.Writer
	tag Capability

	closes atomic.Int32
}

func (m *memEndpoint) Read(p []byte) (int, error) {
	if m.r == nil {
		return 0, io.EOF
	}
	return m.r.Read(p)
}

func (m *memEndpoint) Write(p []byte) (int, error) {
	if m.w == nil {
		return len(p), nil
	}
	return m.w.Write(p)
}

func (m *memEndpoint) Close() error {
	m.closes.Add(1)
	return nil
}

func (m *memEndpoint) Capability() Capability { return m.tag }

// trackedEndpoint counts Close calls on a real endpoint and can fail or
// panic on demand.
type trackedEndpoint struct {
	Endpoint

	readErr   error // returned by Read after the first readOK bytes
	readOK    int
	writeErr  error
	readPanic bool

	mu     sync.Mutex
	read   int
	closes atomic.Int32
}

func (e *trackedEndpoint) Read(p []byte) (int, error) {
	if e.readPanic {
		panic("read exploded")
	}
	if e.readErr != nil {
		e.mu.Lock()
		left := e.readOK - e.read
		e.mu.Unlock()
		if left <= 0 {
			return 0, e.readErr
		}
		if len(p) > left {
			p = p[:left]
		}
	}
	n, err := e.Endpoint.Read(p)
	e.mu.Lock()
	e.read += n
	e.mu.Unlock()
	return n, err
}

func (e *trackedEndpoint) Write(p []byte) (int, error) {
	if e.writeErr != nil {
		return 0, e.writeErr
	}
	return e.Endpoint.Write(p)
}

func (e *trackedEndpoint) Close() error {
	e.closes.Add(1)
	return e.Endpoint.Close()
}

// chunkyWriter accepts at most max bytes per Write. It is not safe for
// concurrent use on purpose: the race detector catches unguarded callers.
type chunkyWriter struct {
	max int
	buf []byte
}

func (w *chunkyWriter) Write(p []byte) (int, error) {
	if len(p) > w.max {
		p = p[:w.max]
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}
