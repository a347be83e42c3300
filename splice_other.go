//go:build !linux
// +build !linux

package relay

// spliceTo is never applicable without splice(2); the pump falls back to
// the buffered path.
func spliceTo(dst, src Endpoint, limit int64) (Outcome, bool) {
	return Outcome{}, false
}
