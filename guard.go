package relay

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// ErrGuardNotHeld is the panic value of Release on a Guard nobody holds.
// The check is only compiled in with the relaydebug build tag; without it
// an unmatched Release is a fatal runtime error from sync.Mutex.
var ErrGuardNotHeld = errors.New("relay: release of guard that is not held")

// Guard serializes writers onto one destination. At most one goroutine
// holds it at a time. The zero value is ready to use; a Guard must not be
// copied after first use.
//
// Guard is a lock, not a one-slot channel token; TestGuard_BeatsChannelToken
// holds it to that. Waiters are not served in strict FIFO order, but a
// waiter blocked for over a millisecond switches the lock to hand-off
// mode, so none starves.
type Guard struct {
	mu   sync.Mutex
	held atomic.Bool // maintained only when guardChecks is set
}

// Acquire blocks until the guard is free and takes it.
func (g *Guard) Acquire() {
	g.mu.Lock()
	if guardChecks {
		g.held.Store(true)
	}
}

// TryAcquire takes the guard if it is free and reports whether it did.
func (g *Guard) TryAcquire() bool {
	if !g.mu.TryLock() {
		return false
	}
	if guardChecks {
		g.held.Store(true)
	}
	return true
}

// Release gives the guard back. It must be paired with a successful
// Acquire or TryAcquire.
func (g *Guard) Release() {
	if guardChecks && !g.held.Swap(false) {
		panic(ErrGuardNotHeld)
	}
	g.mu.Unlock()
}

// SyncWriter lets many goroutines share one io.Writer. Each Write call is
// delivered to the underlying writer in full, short writes retried, before
// any other Write may start, so concurrent producers never interleave
// inside one another's buffers.
type SyncWriter struct {
	guard Guard
	w     io.Writer
}

// NewSyncWriter wraps w.
func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.guard.Acquire()
	defer s.guard.Release()
	return writeFull(s.w, p)
}

// Do runs fn while holding the writer exclusively, for producers that
// must issue several writes as one unit (a frame header and its body).
func (s *SyncWriter) Do(fn func(w io.Writer) error) error {
	s.guard.Acquire()
	defer s.guard.Release()
	return fn(s.w)
}
