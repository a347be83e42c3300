package relay

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Direction identifies one half of a relay between a and b.
type Direction uint8

const (
	// None: no direction is to blame.
	None Direction = iota
	// Forward carries a -> b.
	Forward
	// Reverse carries b -> a.
	Reverse
)

func (d Direction) String() string {
	switch d {
	case None:
		return "none"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// TransferError is the error Relay reports for the direction that failed
// first. Err is the pump's error, unmodified.
type TransferError struct {
	Direction Direction
	Cause     Cause
	Err       error
}

func (e *TransferError) Error() string {
	return "relay: " + e.Direction.String() + " " + e.Cause.String() + ": " + e.Err.Error()
}

func (e *TransferError) Unwrap() error { return e.Err }

// Result is what a relay reports once both directions have stopped.
type Result struct {
	// Err is the first direction's error as a *TransferError, ctx.Err() if
	// RelayContext's context ended the relay, or nil when the first
	// direction to stop reached clean EOF.
	Err error

	// Direction is the direction Err belongs to, None when Err is nil or
	// came from the context.
	Direction Direction

	Forward Outcome
	Reverse Outcome
}

// Relay pumps a into b and b into a concurrently until either direction
// stops. The first direction to stop, for any reason including clean EOF,
// causes both endpoints to be closed, which unblocks the other direction.
// Its error, if any, is returned; the error the shutdown induces in the
// other direction is not.
//
// Relay takes ownership of a and b: both are closed exactly once before it
// returns, on every path.
func Relay(a, b Endpoint, opts ...Option) Result {
	return RelayContext(context.Background(), a, b, opts...)
}

// RelayContext is Relay with an additional way out: when ctx is done
// before either direction stops, both endpoints are closed and Result.Err
// is ctx.Err().
func RelayContext(ctx context.Context, a, b Endpoint, opts ...Option) Result {
	if a == nil || b == nil {
		if a != nil {
			_ = a.Close()
		}
		if b != nil {
			_ = b.Close()
		}
		return Result{Err: ErrNilEndpoint}
	}

	cfg := newConfig(opts)
	r := &session{a: a, b: b}
	defer r.shutdown()

	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			r.cancel(ctx.Err())
		})
		defer stop()
	}

	var g errgroup.Group
	g.Go(func() error {
		r.run(Forward, b, a, cfg)
		return nil
	})
	g.Go(func() error {
		r.run(Reverse, a, b, cfg)
		return nil
	})
	_ = g.Wait()

	r.mu.Lock()
	res := r.res
	r.mu.Unlock()

	cfg.logger.Debug("relay finished",
		zap.Stringer("direction", res.Direction),
		zap.Int64("forward_bytes", res.Forward.N),
		zap.Int64("forward_spliced", res.Forward.Spliced),
		zap.Int64("reverse_bytes", res.Reverse.N),
		zap.Int64("reverse_spliced", res.Reverse.Spliced),
		zap.Error(res.Err))
	return res
}

// session is the shared state of one Relay call.
type session struct {
	a, b Endpoint

	mu sync.Mutex
	// stopping is set by whichever completion comes first. Completions
	// observed after it is set were caused by the shutdown.
	stopping bool
	res      Result

	closeOnce sync.Once
}

func (r *session) run(dir Direction, dst, src Endpoint, cfg *config) {
	defer r.shutdown()
	r.finish(dir, pump(dst, src, cfg))
}

func (r *session) finish(dir Direction, out Outcome) {
	r.mu.Lock()
	out.Induced = r.stopping
	if !r.stopping {
		r.stopping = true
		if out.Err != nil {
			r.res.Err = &TransferError{Direction: dir, Cause: out.Cause, Err: out.Err}
			r.res.Direction = dir
		}
	}
	if dir == Forward {
		r.res.Forward = out
	} else {
		r.res.Reverse = out
	}
	r.mu.Unlock()

	r.shutdown()
}

func (r *session) cancel(err error) {
	r.mu.Lock()
	if !r.stopping {
		r.stopping = true
		r.res.Err = err
	}
	r.mu.Unlock()

	r.shutdown()
}

// shutdown closes both endpoints once. Close errors are ignored: the
// endpoint may already have been closed by its owner.
func (r *session) shutdown() {
	r.closeOnce.Do(func() {
		_ = r.a.Close()
		_ = r.b.Close()
	})
}
