// Package relay moves bytes between two connected duplex endpoints in both
// directions, using kernel-level zero-copy transfer when the endpoint pair
// allows it and a pooled userspace buffer otherwise.
//
// Key features:
//   - Linux splice(2) between sockets, pipes and files without staging the
//     payload in process memory
//   - Per-pair, per-direction capability negotiation with no trial I/O
//   - Transparent fallback to buffered copy, including mid-stream, with no
//     byte dropped or duplicated at the hand-off
//   - Symmetric shutdown: the first direction to finish closes both
//     endpoints exactly once and its error is the one reported
//   - Guard and SyncWriter for serializing concurrent writers onto one
//     destination
//
// Transfer strategy:
//
//	Negotiator.CanZeroCopy(dst, src)
//	    true  -> splice src -> pipe -> dst (netpoller driven)
//	             not applicable at call time -> buffered copy for the rest
//	    false -> buffered copy (32 KiB pooled buffer)
//
// Cancellation:
//
//	Closing either endpoint unblocks any in-flight transfer on it. Relay
//	relies on this to stop the surviving direction; RelayContext also
//	closes both endpoints when its context is done. The package never
//	imposes a timeout of its own; use SetDeadline on the endpoints.
//
// Platform Support:
//   - Zero-copy path: Linux only (splice with SPLICE_F_NONBLOCK)
//   - Everything else: cross-platform; non-Linux builds always take the
//     buffered path
//
// Thread Safety:
//
//	Relay and Pump may be called from many goroutines on distinct endpoint
//	pairs. A given endpoint must not be read or written by anything else
//	while it is being relayed. Guard and SyncWriter are safe for concurrent
//	use.
package relay
