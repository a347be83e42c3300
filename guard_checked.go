//go:build relaydebug
// +build relaydebug

package relay

// guardChecks makes Guard.Release panic with ErrGuardNotHeld on an
// unmatched call.
const guardChecks = true
