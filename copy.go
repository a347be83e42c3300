package relay

import (
	"errors"
	"io"
	"sync"
)

// DefaultBufferSize is the buffered path's read size. Smaller buffers cost
// more syscalls per byte, larger ones cost memory per live relay direction.
const DefaultBufferSize = 32 * 1024

// errInvalidWrite means a Writer returned an impossible count.
var errInvalidWrite = errors.New("relay: invalid write result")

// bufferPool holds DefaultBufferSize buffers. A pointer to the slice is
// stored to keep Put from allocating.
var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultBufferSize)
		return &b
	},
}

// copyBuffer is the buffered transfer path: read up to len(buf) from src,
// write all of it to dst, repeat. A read of zero bytes with no error is
// treated as end of stream. Bytes returned together with a read error are
// written before the error is reported.
func copyBuffer(dst io.Writer, src io.Reader, buf []byte) Outcome {
	var out Outcome
	copyInto(&out, dst, src, buf)
	return out
}

// copyInto runs the buffered path, adding to out.N after every write so
// the count stays accurate if a Read or Write panics.
func copyInto(out *Outcome, dst io.Writer, src io.Reader, buf []byte) {
	for {
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := writeFull(dst, buf[:nr])
			out.N += int64(nw)
			if ew != nil {
				out.Err, out.Cause = ew, CauseDestination
				return
			}
		}
		if er != nil {
			if er == io.EOF {
				out.Cause = CauseEOF
				return
			}
			out.Err, out.Cause = er, CauseSource
			return
		}
		if nr == 0 {
			out.Cause = CauseEOF
			return
		}
	}
}

// writeFull retries short writes until p is written or the writer fails.
// A writer that makes no progress without reporting an error gets
// io.ErrShortWrite instead of spinning forever.
func writeFull(w io.Writer, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		nw, err := w.Write(p[n:])
		if nw < 0 || nw > len(p)-n {
			return n, errInvalidWrite
		}
		n += nw
		if err != nil {
			return n, err
		}
		if nw == 0 {
			return n, io.ErrShortWrite
		}
	}
	return n, nil
}
