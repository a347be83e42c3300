package relay

import (
	"errors"
	"io"
	"net"
	"os"
	"strconv"
)

// Endpoint is one side of a relay: a duplex byte stream that can be closed
// from another goroutine to unblock pending reads and writes.
//
// net.Conn, *os.File and multiplexed streams such as yamux streams all
// satisfy Endpoint.
type Endpoint interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrNilEndpoint is returned when Relay or Pump is handed a nil endpoint.
var ErrNilEndpoint = errors.New("relay: nil endpoint")

// Capability tags what kind of kernel object backs an endpoint. It is the
// only property of an endpoint the Negotiator looks at.
type Capability uint8

const (
	// Generic endpoints are userspace streams with no file descriptor the
	// kernel can splice (TLS conns, yamux streams, net.Pipe, buffers).
	Generic Capability = iota

	// TCP is a *net.TCPConn.
	TCP

	// Unix is a stream-mode *net.UnixConn. Datagram and seqpacket unix
	// sockets are Generic.
	Unix

	// File is an *os.File: pipes, regular files and character devices.
	File

	numCapabilities
)

var capabilityNames = [numCapabilities]string{
	Generic: "generic",
	TCP:     "tcp",
	Unix:    "unix",
	File:    "file",
}

func (c Capability) String() string {
	if c < numCapabilities {
		return capabilityNames[c]
	}
	return "capability(" + strconv.Itoa(int(c)) + ")"
}

// Kernel reports whether c is backed by a file descriptor.
func (c Capability) Kernel() bool {
	return c != Generic && c < numCapabilities
}

// Classifier lets an endpoint declare its own capability, typically a
// wrapper around a kernel type that still exposes SyscallConn. If the
// declared capability is not Generic, the endpoint must implement
// syscall.Conn or the zero-copy path will decline it.
type Classifier interface {
	Capability() Capability
}

// CapabilityOf returns the capability tag of e. It only inspects the
// dynamic type of e and never performs I/O.
func CapabilityOf(e Endpoint) Capability {
	switch c := e.(type) {
	case nil:
		return Generic
	case Classifier:
		return c.Capability()
	case *net.TCPConn:
		return TCP
	case *net.UnixConn:
		// LocalAddr is cached on the conn; no syscall here.
		if addr, ok := c.LocalAddr().(*net.UnixAddr); ok && addr.Net == "unix" {
			return Unix
		}
		return Generic
	case *os.File:
		return File
	default:
		return Generic
	}
}
