package relay

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Cause says why a pump stopped.
type Cause uint8

const (
	// CauseEOF: the source reached end of stream; Err is nil.
	CauseEOF Cause = iota
	// CauseSource: reading the source failed.
	CauseSource
	// CauseDestination: writing the destination failed.
	CauseDestination
	// CauseFault: the pump panicked; Err wraps ErrPumpFault.
	CauseFault
)

func (c Cause) String() string {
	switch c {
	case CauseEOF:
		return "eof"
	case CauseSource:
		return "source-failure"
	case CauseDestination:
		return "destination-failure"
	case CauseFault:
		return "fault"
	default:
		return fmt.Sprintf("cause(%d)", uint8(c))
	}
}

// ErrPumpFault wraps a panic recovered inside a pump.
var ErrPumpFault = errors.New("relay: pump panicked")

// Outcome is the result of one direction of transfer.
type Outcome struct {
	// N is the total bytes delivered to the destination, both paths
	// together.
	N int64

	// Spliced is the part of N moved by the zero-copy path.
	Spliced int64

	// Err is nil exactly when Cause is CauseEOF.
	Err   error
	Cause Cause

	// Induced is set by Relay on the direction that was stopped because
	// the other one finished first. Its Err is a consequence of the
	// shutdown, not an independent failure.
	Induced bool
}

// Pump copies src into dst until src reaches EOF or either side fails.
// It tries the zero-copy path when the negotiator allows the pair, and
// continues on the buffered path if the kernel declines it, counting
// bytes across both. Pump never closes either endpoint.
func Pump(dst, src Endpoint, opts ...Option) Outcome {
	switch {
	case src == nil:
		return Outcome{Err: ErrNilEndpoint, Cause: CauseSource}
	case dst == nil:
		return Outcome{Err: ErrNilEndpoint, Cause: CauseDestination}
	}
	return pump(dst, src, newConfig(opts))
}

func pump(dst, src Endpoint, cfg *config) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("%w: %v", ErrPumpFault, r)
			out.Cause = CauseFault
		}
	}()

	// Capability is fixed for the life of the pair: ask once.
	if cfg.negotiator.CanZeroCopy(dst, src) {
		fast, handled := cfg.zeroCopy(dst, src, 0)
		fast.Spliced = fast.N
		if handled {
			return fast
		}
		out = fast
		cfg.logger.Debug("zero-copy not applicable, using buffered copy",
			zap.Stringer("src", CapabilityOf(src)),
			zap.Stringer("dst", CapabilityOf(dst)),
			zap.Int64("spliced", fast.N))
	}

	buf, put := cfg.buffer()
	defer put()

	out.Err, out.Cause = nil, CauseEOF
	copyInto(&out, dst, src, buf)
	return out
}
