//go:build linux
// +build linux

package relay

import (
	"sync"

	"golang.org/x/sys/unix"
)

// linuxPairs are the ordered combinations splice(2) handles through an
// intermediate pipe on the kernels we target. Each direction is listed on
// its own so a platform that turns out to reject one of them can drop just
// that entry with Platform.Without. Combinations the running kernel
// refuses at call time (old kernels without unix_stream_splice_read,
// O_APPEND files, character devices) come back as EINVAL and are handled
// as not applicable by the zero-copy path.
var linuxPairs = []Pair{
	{Src: TCP, Dst: TCP},
	{Src: TCP, Dst: Unix},
	{Src: TCP, Dst: File},
	{Src: Unix, Dst: TCP},
	{Src: Unix, Dst: Unix},
	{Src: Unix, Dst: File},
	{Src: File, Dst: TCP},
	{Src: File, Dst: Unix},
	{Src: File, Dst: File},
}

var hostPlatform = sync.OnceValue(func() Platform {
	// Invalid descriptors: a kernel with splice answers EBADF/EINVAL,
	// one without answers ENOSYS.
	_, err := unix.Splice(-1, nil, -1, nil, 0, 0)
	if err == unix.ENOSYS {
		return Platform{}
	}
	pairs := make([]Pair, len(linuxPairs))
	copy(pairs, linuxPairs)
	return Platform{Splice: true, Pairs: pairs}
})

// HostPlatform detects the zero-copy capabilities of the running kernel.
// The probe runs once per process.
func HostPlatform() Platform {
	p := hostPlatform()
	p.Pairs = append([]Pair(nil), p.Pairs...)
	return p
}
