//go:build linux
// +build linux

package relay

import (
	"errors"
	"io"
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	// maxSpliceChunk is the most bytes requested from the source per
	// splice(2) call.
	maxSpliceChunk = 1 << 20

	// pipeSize is the capacity requested for the intermediate pipe. The
	// default is 64 KiB; F_SETPIPE_SZ may be refused for unprivileged
	// users above /proc/sys/fs/pipe-max-size, which is fine.
	pipeSize = 1 << 20

	spliceFlags = unix.SPLICE_F_MOVE | unix.SPLICE_F_NONBLOCK
)

// platformSplice wraps unix.Splice, retrying on EINTR and clamping the
// count to zero on error.
func platformSplice(rfd, wfd, n int) (int, error) {
	for {
		m, err := unix.Splice(rfd, nil, wfd, nil, n, spliceFlags)
		if err == unix.EINTR {
			continue
		}
		if m < 0 {
			m = 0
		}
		return int(m), err
	}
}

// spliceTo moves bytes from src to dst inside the kernel, through a pipe:
// src -> pipe -> dst. limit <= 0 means until EOF; reaching the limit is
// reported like EOF.
//
// The second return value is false when the pair turned out not to be
// spliceable. Any bytes already moved are counted in the returned Outcome
// and none are left behind in the pipe, so the caller can continue with a
// buffered copy from exactly where this stopped.
//
// Waiting for readiness goes through the runtime netpoller (RawConn.Read
// and RawConn.Write), so closing either endpoint wakes a blocked splice
// with an error.
func spliceTo(dst, src Endpoint, limit int64) (Outcome, bool) {
	var out Outcome

	srcConn, ok := src.(syscall.Conn)
	if !ok {
		return out, false
	}
	dstConn, ok := dst.(syscall.Conn)
	if !ok {
		return out, false
	}
	rsrc, err := srcConn.SyscallConn()
	if err != nil {
		return out, false
	}
	rdst, err := dstConn.SyscallConn()
	if err != nil {
		return out, false
	}

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return out, false
	}
	pr, pw := p[0], p[1]
	defer unix.Close(pr)
	defer unix.Close(pw)
	_, _ = unix.FcntlInt(uintptr(pw), unix.F_SETPIPE_SZ, pipeSize)

	for limit <= 0 || out.N < limit {
		chunk := maxSpliceChunk
		if limit > 0 && limit-out.N < int64(chunk) {
			chunk = int(limit - out.N)
		}

		// The pipe is empty here, so EAGAIN can only mean src has no data.
		var n int
		var serr error
		err := rsrc.Read(func(fd uintptr) bool {
			n, serr = platformSplice(int(fd), pw, chunk)
			return serr != unix.EAGAIN
		})
		if err == nil {
			err = serr
		}
		if err != nil {
			if notSpliceable(err) {
				return out, false
			}
			out.Err, out.Cause = err, CauseSource
			return out, true
		}
		if n == 0 {
			out.Cause = CauseEOF
			return out, true
		}

		drained, err := drainPipe(rdst, pr, n)
		out.N += int64(drained)
		if err != nil {
			if !notSpliceable(err) {
				out.Err, out.Cause = err, CauseDestination
				return out, true
			}
			flushed, ferr := flushPipe(dst, pr, n-drained)
			out.N += flushed
			if ferr != nil {
				out.Err, out.Cause = ferr, CauseDestination
				return out, true
			}
			return out, false
		}
	}

	out.Cause = CauseEOF
	return out, true
}

// drainPipe splices exactly n buffered bytes from the pipe into dst.
// The pipe holds data, so EAGAIN can only mean dst is full.
func drainPipe(rdst syscall.RawConn, pr, n int) (int, error) {
	drained := 0
	var serr error
	err := rdst.Write(func(fd uintptr) bool {
		for drained < n {
			m, e := platformSplice(pr, int(fd), n-drained)
			drained += m
			switch {
			case e == unix.EAGAIN:
				return false
			case e != nil:
				serr = e
				return true
			case m == 0:
				serr = io.ErrShortWrite
				return true
			}
		}
		return true
	})
	if err == nil {
		err = serr
	}
	return drained, err
}

// flushPipe copies bytes stranded in the pipe to dst through userspace.
// It runs only when dst refused splice after the pipe was filled.
func flushPipe(dst io.Writer, pr, n int) (int64, error) {
	bp := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bp)
	buf := *bp

	var total int64
	for n > 0 {
		want := len(buf)
		if want > n {
			want = n
		}
		m, err := unix.Read(pr, buf[:want])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, err
		}
		if m <= 0 {
			return total, io.ErrUnexpectedEOF
		}
		w, err := writeFull(dst, buf[:m])
		total += int64(w)
		if err != nil {
			return total, err
		}
		n -= m
	}
	return total, nil
}

// notSpliceable reports errors meaning "this pair cannot be spliced",
// as opposed to an I/O failure on one of the endpoints.
func notSpliceable(err error) bool {
	return errors.Is(err, unix.EINVAL) ||
		errors.Is(err, unix.ENOSYS) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.EXDEV)
}
