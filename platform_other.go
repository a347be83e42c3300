//go:build !linux
// +build !linux

package relay

// HostPlatform reports no zero-copy support on non-Linux platforms.
func HostPlatform() Platform {
	return Platform{}
}
